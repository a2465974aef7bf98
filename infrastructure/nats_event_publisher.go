package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ironforged/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MessagePublisher sends raw bytes to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps a domain event on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher forwards committed domain events to NATS
type NATSEventPublisher struct {
	publisher MessagePublisher
	now       func() time.Time

	// OnPublished, when set, is told the outcome of every publish
	OnPublished func(eventType events.EventType, err error)
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(publisher MessagePublisher) *NATSEventPublisher {
	return &NATSEventPublisher{
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubjectFor maps an event to its subject, e.g. ironforged.ingots_change
func SubjectFor(event events.Event) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, event.Type())
}

// Publish wraps event in an envelope and sends it
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	data, err := p.encode(event)
	if err == nil {
		err = p.publisher.Publish(ctx, SubjectFor(event), data)
	}

	if p.OnPublished != nil {
		p.OnPublished(event.Type(), err)
	}
	return err
}

// Forward publishes every event emitted on bus. Failures are logged; the
// database stays the system of record.
func (p *NATSEventPublisher) Forward(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := p.Publish(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"subject":   SubjectFor(event),
			}).WithError(err).Error("Failed to forward event to NATS")
		}
	})
}

func (p *NATSEventPublisher) encode(event events.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     p.now(),
		SourceService: "ironforged-bot",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, nil
}
