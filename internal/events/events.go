package events

import (
	"context"
	"encoding/json"
	"time"
)

// Lead event types published on the configured topic.
const (
	TypeLeadCreated = "lead.created"
	TypeLeadUpdated = "lead.updated"
	TypeLeadDeleted = "lead.deleted"
)

// LeadEvent is the JSON payload emitted after a successful lead mutation.
type LeadEvent struct {
	Type       string    `json:"type"`
	LeadID     int       `json:"leadId"`
	OwnerID    int       `json:"ownerId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Publisher emits lead change events to a fixed topic on a backend.
type Publisher struct {
	backend Backend
	topic   string
}

// NewPublisher constructs a Publisher for the provided backend and topic.
func NewPublisher(backend Backend, topic string) *Publisher {
	return &Publisher{backend: backend, topic: topic}
}

// LeadChanged publishes a lead event. The event type is mirrored into the
// message attributes so consumers can route without decoding the body.
func (p *Publisher) LeadChanged(ctx context.Context, eventType string, leadID, ownerID int) error {
	event := LeadEvent{
		Type:       eventType,
		LeadID:     leadID,
		OwnerID:    ownerID,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, p.topic, data, map[string]string{"type": eventType})
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}
