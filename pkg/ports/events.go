package ports

import (
	"context"
	"time"
)

// EventType identifies the kind of event published on the bus.
type EventType string

const (
	EventTypeDecisionSubmitted EventType = "decision.submitted"
	EventTypeJobOutcome        EventType = "job.outcome"
)

// Topics used by the core.
const (
	// TopicOutcomes carries one terminal outcome event per job;
	// decision processes subscribe here instead of blocking on submit.
	TopicOutcomes = "decision.outcomes"
	// TopicDecisions carries decision submission announcements for the
	// dashboard stream.
	TopicDecisions = "decision.submitted"
)

// Event is the envelope published on the event bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	AccountID string                 `json:"account_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler processes a single event delivered by a subscription.
type EventHandler func(ctx context.Context, event Event) error

// EventBus decouples outcome producers from their observers.
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}
