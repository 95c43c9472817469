package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/service/mocks"
)

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/cancel", h.CancelBooking).Methods(http.MethodPost)
	api.HandleFunc("/trip-instances", h.ListTripInstances).Methods(http.MethodGet)
	api.HandleFunc("/trip-instances/{id}/legs/{leg}/complete", h.MarkLegCompleted).Methods(http.MethodPost)
	api.HandleFunc("/trip-instances/{id}/ws", h.WatchTripInstance)
	api.HandleFunc("/trips/{id}", h.DeleteTrip).Methods(http.MethodDelete)
	api.HandleFunc("/trips/{id}/availability", h.GetAvailability).Methods(http.MethodGet)
	api.HandleFunc("/admin/holds/sweep", h.SweepExpiredHolds).Methods(http.MethodPost)
	return r
}

func newTestHandler() (*mocks.MockBookingService, *mux.Router) {
	mockService := new(mocks.MockBookingService)
	return mockService, setupTestRouter(NewHandler(mockService, nil, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestHandler_CreateBooking(t *testing.T) {
	tripID := uuid.New()
	bookingID := uuid.New()
	instanceID := uuid.New()

	validRequest := models.CreateBookingRequest{
		GuestID:       uuid.New(),
		TripID:        tripID,
		HotelID:       uuid.New(),
		ScheduledDate: "2026-12-01",
		DesiredTime:   "09:15",
		Seats:         2,
		PaymentMethod: models.PaymentMethodCard,
		Source:        models.BookingSourceGuest,
		CreatedBy:     uuid.New(),
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		mockReturn     *models.CreateBookingResult
		mockError      error
		expectedStatus int
		expectedError  string
		shouldCallMock bool
	}{
		{
			name:        "booking placed",
			requestBody: validRequest,
			mockReturn: &models.CreateBookingResult{
				Booking: &models.Booking{ID: bookingID, Status: models.BookingStatusPending},
				AssignedSlot: models.AssignedSlot{
					TripInstanceID:     instanceID,
					ScheduledDate:      "2026-12-01",
					ScheduledStartTime: "09:00",
					ScheduledEndTime:   "10:00",
				},
			},
			expectedStatus: http.StatusCreated,
			shouldCallMock: true,
		},
		{
			name:           "validation error",
			requestBody:    validRequest,
			mockError:      apperrors.ValidationError{Field: "seats", Msg: "must be positive"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "seats: must be positive",
			shouldCallMock: true,
		},
		{
			name:           "no capacity",
			requestBody:    validRequest,
			mockError:      apperrors.InsufficientCapacityError{Requested: 2},
			expectedStatus: http.StatusConflict,
			expectedError:  MsgNoCapacity,
			shouldCallMock: true,
		},
		{
			name:           "trip unavailable",
			requestBody:    validRequest,
			mockError:      apperrors.TripInstanceUnavailableError{},
			expectedStatus: http.StatusConflict,
			expectedError:  MsgUnavailable,
			shouldCallMock: true,
		},
		{
			name:           "lost race",
			requestBody:    validRequest,
			mockError:      apperrors.ConcurrencyConflictError{Resource: "trip instance", Attempts: 5},
			expectedStatus: http.StatusConflict,
			expectedError:  MsgRetry,
			shouldCallMock: true,
		},
		{
			name:           "unknown trip",
			requestBody:    validRequest,
			mockError:      apperrors.NotFoundError{Resource: "trip", ID: tripID.String()},
			expectedStatus: http.StatusNotFound,
			shouldCallMock: true,
		},
		{
			name:           "storage failure",
			requestBody:    validRequest,
			mockError:      errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  MsgInternal,
			shouldCallMock: true,
		},
		{
			name:           "invalid body",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request body",
			shouldCallMock: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService, router := newTestHandler()

			if tt.shouldCallMock {
				mockService.On("CreateBooking", mock.Anything, mock.AnythingOfType("*models.CreateBookingRequest")).
					Return(tt.mockReturn, tt.mockError)
			}

			var body []byte
			if s, ok := tt.requestBody.(string); ok {
				body = []byte(s)
			} else {
				body, _ = json.Marshal(tt.requestBody)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, rec))
			}
			if tt.expectedStatus == http.StatusCreated {
				var result models.CreateBookingResult
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
				assert.Equal(t, bookingID, result.Booking.ID)
				assert.Equal(t, instanceID, result.AssignedSlot.TripInstanceID)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_GetBooking(t *testing.T) {
	bookingID := uuid.New()

	tests := []struct {
		name           string
		bookingID      string
		mockReturn     *models.Booking
		mockError      error
		expectedStatus int
		shouldCallMock bool
	}{
		{
			name:           "booking found",
			bookingID:      bookingID.String(),
			mockReturn:     &models.Booking{ID: bookingID},
			expectedStatus: http.StatusOK,
			shouldCallMock: true,
		},
		{
			name:           "booking not found",
			bookingID:      bookingID.String(),
			mockError:      apperrors.NotFoundError{Resource: "booking", ID: bookingID.String()},
			expectedStatus: http.StatusNotFound,
			shouldCallMock: true,
		},
		{
			name:           "malformed id",
			bookingID:      "abc",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService, router := newTestHandler()
			if tt.shouldCallMock {
				mockService.On("GetBooking", mock.Anything, bookingID).Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/bookings/"+tt.bookingID, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_CancelBooking_InvalidTransition(t *testing.T) {
	mockService, router := newTestHandler()
	bookingID := uuid.New()

	mockService.On("CancelBooking", mock.Anything, bookingID, mock.AnythingOfType("*models.CancelBookingRequest")).
		Return(nil, apperrors.InvalidTransitionError{Entity: "booking", From: "CONFIRMED", To: "CANCELLED", Msg: "trip already completed"})

	body, _ := json.Marshal(models.CancelBookingRequest{UserID: uuid.New()})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/"+bookingID.String()+"/cancel", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeError(t, rec), "trip already completed")
	mockService.AssertExpectations(t)
}

func TestHandler_GetAvailability_PassesQuery(t *testing.T) {
	mockService, router := newTestHandler()
	tripID := uuid.New()

	mockService.On("GetAvailability", mock.Anything, mock.MatchedBy(func(q models.AvailabilityQuery) bool {
		return q.TripID == tripID &&
			q.Slot == models.Slot{Date: "2026-12-01", Start: "09:00", End: "10:00"} &&
			q.FromLeg != nil && *q.FromLeg == 1 &&
			q.ToLeg != nil && *q.ToLeg == 2
	})).Return(&models.AvailabilityReport{TripID: tripID, TotalAvailableSeats: 7}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/trips/"+tripID.String()+"/availability?date=2026-12-01&start=09:00&end=10:00&fromLeg=1&toLeg=2", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report models.AvailabilityReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, 7, report.TotalAvailableSeats)
	mockService.AssertExpectations(t)
}

func TestHandler_GetAvailability_BadLeg(t *testing.T) {
	mockService, router := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/trips/"+uuid.NewString()+"/availability?fromLeg=x", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockService.AssertNotCalled(t, "GetAvailability", mock.Anything, mock.Anything)
}

func TestHandler_ListTripInstances(t *testing.T) {
	mockService, router := newTestHandler()
	shuttleID := uuid.New()

	mockService.On("ListTripInstances", mock.Anything, mock.MatchedBy(func(f models.InstanceFilter) bool {
		return f.ShuttleID != nil && *f.ShuttleID == shuttleID && f.TripID == nil && f.Date == "2026-12-01"
	})).Return([]models.TripInstanceSnapshot{{TripInstanceID: uuid.New(), PeakOccupancy: 3}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/trip-instances?date=2026-12-01&shuttleId="+shuttleID.String(), nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var manifest []models.TripInstanceSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&manifest))
	assert.Len(t, manifest, 1)
	mockService.AssertExpectations(t)
}

func TestHandler_MarkLegCompleted(t *testing.T) {
	instanceID := uuid.New()

	t.Run("valid leg", func(t *testing.T) {
		mockService, router := newTestHandler()
		mockService.On("MarkLegCompleted", mock.Anything, instanceID, 2).
			Return(&models.TripInstance{ID: instanceID, Status: models.TripInstanceStatusInProgress}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/trip-instances/"+instanceID.String()+"/legs/2/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("non numeric leg", func(t *testing.T) {
		_, router := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/trip-instances/"+instanceID.String()+"/legs/last/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeleteTrip_Refused(t *testing.T) {
	mockService, router := newTestHandler()
	tripID := uuid.New()

	mockService.On("DeleteTrip", mock.Anything, tripID).
		Return(apperrors.ConflictError{Resource: "trip", Msg: "trip has active instances"})

	req := httptest.NewRequest(http.MethodDelete, "/api/trips/"+tripID.String(), nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_SweepExpiredHolds(t *testing.T) {
	mockService, router := newTestHandler()
	mockService.On("SweepExpiredHolds", mock.Anything).Return(&models.HoldSweepResult{Rejected: 2}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/holds/sweep", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.HoldSweepResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 2, result.Rejected)
}

func TestHandler_WatchTripInstance_WithoutHub(t *testing.T) {
	_, router := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/trip-instances/"+uuid.NewString()+"/ws", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
