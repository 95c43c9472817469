package router

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/handlers"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, log *logger.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware)
	if log != nil {
		r.Use(loggingMiddleware(log))
	}

	api := r.PathPrefix("/api").Subrouter()

	// Bookings
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/confirm", h.ConfirmBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/reject", h.RejectBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/cancel", h.CancelBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}/payment", h.UpdatePayment).Methods(http.MethodPost, http.MethodOptions)

	// Trip instances
	api.HandleFunc("/trip-instances", h.ListTripInstances).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/trip-instances", h.ScheduleTripInstance).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/trip-instances/{id}", h.GetTripInstance).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/trip-instances/{id}/shuttle", h.AssignShuttle).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/trip-instances/{id}/start", h.StartTripInstance).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/trip-instances/{id}/legs/{leg}/complete", h.MarkLegCompleted).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/trip-instances/{id}/complete", h.CompleteTripInstance).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/trip-instances/{id}/cancel", h.CancelTripInstance).Methods(http.MethodPost, http.MethodOptions)

	// WebSocket for live snapshots
	api.HandleFunc("/trip-instances/{id}/ws", h.WatchTripInstance)

	// Catalog
	api.HandleFunc("/hotels", h.CreateHotel).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/hotels/{id}/dashboard", h.GetDashboard).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/hotels/{id}/trips", h.ListTrips).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/hotels/{id}/shuttles", h.ListShuttles).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/trips", h.CreateTrip).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/trips/{id}", h.GetTrip).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/trips/{id}", h.DeleteTrip).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/trips/{id}/availability", h.GetAvailability).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/shuttles", h.CreateShuttle).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/shuttles/{id}", h.UpdateShuttle).Methods(http.MethodPatch, http.MethodOptions)

	// Admin
	api.HandleFunc("/admin/holds/sweep", h.SweepExpiredHolds).Methods(http.MethodPost, http.MethodOptions)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the wrapper
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
