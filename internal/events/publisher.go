package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// Message headers
const (
	HeaderEventType = "event-type"
	HeaderHotelID   = "hotel-id"
)

var ErrPublisherClosed = errors.New("event publisher is closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes booking and trip instance events to a Kafka topic, keyed
// by booking or instance id so one entity's events stay ordered.
type Publisher struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
	closed bool
	mu     sync.RWMutex
}

// NewPublisher creates a Kafka publisher for the given brokers and topic
func NewPublisher(brokers []string, topic string, log *logger.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  compress.Snappy,
		MaxAttempts:  5,
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka writer error", "error", fmt.Sprintf(msg, args...))
		}),
	}

	return newPublisher(writer, topic, log), nil
}

func newPublisher(writer messageWriter, topic string, log *logger.Logger) *Publisher {
	return &Publisher{writer: writer, topic: topic, log: log}
}

// Publish encodes the event as JSON and writes it synchronously
func (p *Publisher) Publish(ctx context.Context, event models.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Type)},
			{Key: HeaderHotelID, Value: []byte(event.HotelID.String())},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event.Type, p.topic, err)
	}

	p.log.Debug("Event published", "type", event.Type, "key", event.Key())
	return nil
}

// Close flushes pending writes and releases the writer
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// LogPublisher drops events after a debug log, for deployments without Kafka
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event models.Event) error {
	p.log.Debug("Event dropped, no broker configured", "type", event.Type, "key", event.Key())
	return nil
}
