package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testBooking() *models.Booking {
	return &models.Booking{
		ID:             uuid.New(),
		HotelID:        uuid.New(),
		TripInstanceID: uuid.New(),
		Seats:          2,
		Status:         models.BookingStatusPending,
	}
}

func TestPublisher_KeysByBooking(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "shuttle.booking-events", logger.Nop())
	b := testBooking()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), models.NewBookingEvent(models.EventBookingCreated, b, at)))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, b.ID.String(), string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: HeaderEventType, Value: []byte("booking.created")})
	assert.Contains(t, msg.Headers, kafka.Header{Key: HeaderHotelID, Value: []byte(b.HotelID.String())})

	var decoded models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, models.EventBookingCreated, decoded.Type)
	assert.Equal(t, "PENDING", decoded.Status)
}

func TestPublisher_KeysInstanceEventsByInstance(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "topic", logger.Nop())
	inst := &models.TripInstance{ID: uuid.New(), HotelID: uuid.New(), Status: models.TripInstanceStatusInProgress}

	require.NoError(t, p.Publish(context.Background(), models.NewInstanceEvent(models.EventTripInstanceStarted, inst, time.Now())))

	require.Len(t, w.messages, 1)
	assert.Equal(t, inst.ID.String(), string(w.messages[0].Key))
}

func TestPublisher_WrapsWriteErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newPublisher(w, "topic", logger.Nop())

	err := p.Publish(context.Background(), models.NewBookingEvent(models.EventBookingConfirmed, testBooking(), time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking.confirmed")
	assert.Contains(t, err.Error(), "broker down")
}

func TestPublisher_Closed(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "topic", logger.Nop())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish(context.Background(), models.NewBookingEvent(models.EventBookingCreated, testBooking(), time.Now()))
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(nil, "topic", logger.Nop())
	assert.Error(t, err)

	_, err = NewPublisher([]string{"localhost:9092"}, "", logger.Nop())
	assert.Error(t, err)

	p, err := NewPublisher([]string{"localhost:9092"}, "topic", logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(logger.Nop())
	assert.NoError(t, p.Publish(context.Background(), models.NewBookingEvent(models.EventBookingCreated, testBooking(), time.Now())))
}
