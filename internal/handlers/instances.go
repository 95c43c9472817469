package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// GetAvailability handles GET /api/trips/{id}/availability?date=&start=&end=&fromLeg=&toLeg=
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fromLeg, ok := queryInt(w, r, "fromLeg")
	if !ok {
		return
	}
	toLeg, ok := queryInt(w, r, "toLeg")
	if !ok {
		return
	}

	q := r.URL.Query()
	report, err := h.bookingService.GetAvailability(r.Context(), models.AvailabilityQuery{
		TripID:  tripID,
		Slot:    models.Slot{Date: q.Get("date"), Start: q.Get("start"), End: q.Get("end")},
		FromLeg: fromLeg,
		ToLeg:   toLeg,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// ListTripInstances handles GET /api/trip-instances?date=&tripId=|shuttleId=|hotelId=
func (h *Handler) ListTripInstances(w http.ResponseWriter, r *http.Request) {
	filter := models.InstanceFilter{Date: r.URL.Query().Get("date")}
	var ok bool
	if filter.TripID, ok = queryID(w, r, "tripId"); !ok {
		return
	}
	if filter.ShuttleID, ok = queryID(w, r, "shuttleId"); !ok {
		return
	}
	if filter.HotelID, ok = queryID(w, r, "hotelId"); !ok {
		return
	}

	manifest, err := h.bookingService.ListTripInstances(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, manifest)
}

// GetTripInstance handles GET /api/trip-instances/{id}
func (h *Handler) GetTripInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	snapshot, err := h.bookingService.GetTripInstanceSnapshot(r.Context(), instanceID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// ScheduleTripInstance handles POST /api/trip-instances
func (h *Handler) ScheduleTripInstance(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleTripInstanceRequest
	if !decode(w, r, &req) {
		return
	}

	inst, err := h.bookingService.ScheduleTripInstance(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, inst)
}

// AssignShuttle handles POST /api/trip-instances/{id}/shuttle
func (h *Handler) AssignShuttle(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.AssignShuttleRequest
	if !decode(w, r, &req) {
		return
	}

	inst, err := h.bookingService.AssignShuttle(r.Context(), instanceID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// StartTripInstance handles POST /api/trip-instances/{id}/start
func (h *Handler) StartTripInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	inst, err := h.bookingService.StartTripInstance(r.Context(), instanceID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// MarkLegCompleted handles POST /api/trip-instances/{id}/legs/{leg}/complete
func (h *Handler) MarkLegCompleted(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	leg, err := strconv.Atoi(mux.Vars(r)["leg"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "leg must be an integer")
		return
	}

	inst, err := h.bookingService.MarkLegCompleted(r.Context(), instanceID, leg)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// CompleteTripInstance handles POST /api/trip-instances/{id}/complete
func (h *Handler) CompleteTripInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	inst, err := h.bookingService.CompleteTripInstance(r.Context(), instanceID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// CancelTripInstance handles POST /api/trip-instances/{id}/cancel
func (h *Handler) CancelTripInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CancelTripInstanceRequest
	if !decode(w, r, &req) {
		return
	}

	inst, err := h.bookingService.CancelTripInstance(r.Context(), instanceID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// WatchTripInstance handles GET /api/trip-instances/{id}/ws
func (h *Handler) WatchTripInstance(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "Live updates are not enabled")
		return
	}
	instanceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	snapshot, err := h.bookingService.GetTripInstanceSnapshot(r.Context(), instanceID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.hub.Serve(w, r, *snapshot)
}

// GetDashboard handles GET /api/hotels/{id}/dashboard?date=
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	stats, err := h.bookingService.GetDashboard(r.Context(), hotelID, r.URL.Query().Get("date"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
