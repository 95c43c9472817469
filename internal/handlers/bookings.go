package handlers

import (
	"net/http"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.bookingService.CreateBooking(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, booking)
}

// ConfirmBooking handles POST /api/bookings/{id}/confirm
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.ConfirmBookingRequest
	if !decode(w, r, &req) {
		return
	}

	booking, err := h.bookingService.ConfirmBooking(r.Context(), bookingID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, booking)
}

// RejectBooking handles POST /api/bookings/{id}/reject
func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.RejectBookingRequest
	if !decode(w, r, &req) {
		return
	}

	booking, err := h.bookingService.RejectBooking(r.Context(), bookingID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if !decode(w, r, &req) {
		return
	}

	booking, err := h.bookingService.CancelBooking(r.Context(), bookingID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, booking)
}

// UpdatePayment handles POST /api/bookings/{id}/payment
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.PaymentUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	booking, err := h.bookingService.UpdatePayment(r.Context(), bookingID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, booking)
}

// SweepExpiredHolds handles POST /api/admin/holds/sweep
func (h *Handler) SweepExpiredHolds(w http.ResponseWriter, r *http.Request) {
	result, err := h.bookingService.SweepExpiredHolds(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
