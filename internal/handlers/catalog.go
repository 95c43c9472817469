package handlers

import (
	"net/http"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// CreateHotel handles POST /api/hotels
func (h *Handler) CreateHotel(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHotelRequest
	if !decode(w, r, &req) {
		return
	}

	hotel, err := h.bookingService.CreateHotel(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, hotel)
}

// CreateTrip handles POST /api/trips
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTripRequest
	if !decode(w, r, &req) {
		return
	}

	trip, err := h.bookingService.CreateTrip(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, trip)
}

// GetTrip handles GET /api/trips/{id}
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	trip, err := h.bookingService.GetTrip(r.Context(), tripID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trip)
}

// DeleteTrip handles DELETE /api/trips/{id}
func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.bookingService.DeleteTrip(r.Context(), tripID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Trip deleted"})
}

// ListTrips handles GET /api/hotels/{id}/trips
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	trips, err := h.bookingService.ListTrips(r.Context(), hotelID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trips)
}

// CreateShuttle handles POST /api/shuttles
func (h *Handler) CreateShuttle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateShuttleRequest
	if !decode(w, r, &req) {
		return
	}

	shuttle, err := h.bookingService.CreateShuttle(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, shuttle)
}

// UpdateShuttle handles PATCH /api/shuttles/{id}
func (h *Handler) UpdateShuttle(w http.ResponseWriter, r *http.Request) {
	shuttleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateShuttleRequest
	if !decode(w, r, &req) {
		return
	}

	shuttle, err := h.bookingService.UpdateShuttle(r.Context(), shuttleID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, shuttle)
}

// ListShuttles handles GET /api/hotels/{id}/shuttles
func (h *Handler) ListShuttles(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	shuttles, err := h.bookingService.ListShuttles(r.Context(), hotelID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, shuttles)
}
