package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/service"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/websocket"
)

// Error messages shown to guests and frontdesk staff
const (
	MsgNoCapacity  = "Not enough seats on this trip, please try another time"
	MsgUnavailable = "This trip is no longer running, please try another time"
	MsgRetry       = "The trip was updated at the same moment, please try again"
	MsgInternal    = "Internal server error"
)

// Handler contains HTTP handlers for the API
type Handler struct {
	bookingService service.BookingService
	hub            *websocket.Hub
	log            *logger.Logger
}

// NewHandler creates a new Handler instance. hub may be nil when live
// snapshots are not served.
func NewHandler(bookingService service.BookingService, hub *websocket.Hub, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		bookingService: bookingService,
		hub:            hub,
		log:            log,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the error taxonomy onto HTTP statuses
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case apperrors.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case apperrors.IsInsufficientCapacity(err):
		respondError(w, http.StatusConflict, MsgNoCapacity)
	case apperrors.IsTripInstanceUnavailable(err):
		respondError(w, http.StatusConflict, MsgUnavailable)
	case apperrors.IsConcurrencyConflict(err):
		respondError(w, http.StatusConflict, MsgRetry)
	case apperrors.IsInvalidTransition(err), apperrors.IsConflict(err):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, MsgInternal)
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, name+" must be an integer")
		return nil, false
	}
	return &n, true
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
