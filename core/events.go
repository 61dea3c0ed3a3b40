package core

import (
	"context"
	"time"
)

// Event names
const (
	EventAdmissionReviewed = "admission.reviewed"
	EventAttendanceMarked  = "attendance.marked"
)

type (
	Event struct {
		Name       string      `json:"name"`
		OccurredAt time.Time   `json:"occurredAt"`
		Payload    interface{} `json:"payload"`
	}

	// EventPublisher is any service that can broadcast domain events.
	// Publishing happens after the originating transaction committed.
	EventPublisher interface {
		Publish(ctx context.Context, evt Event) error
	}
)

func NewEvent(name string, payload interface{}) Event {
	return Event{Name: name, OccurredAt: NowFunc().UTC(), Payload: payload}
}

// RateLimiter is any service that can throttle callers identified by key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// PublishEvent broadcasts a domain event; failures are logged, never returned,
// as the originating change is already committed.
func PublishEvent(ctx context.Context, pub EventPublisher, logger Logger, name string, payload interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, NewEvent(name, payload)); err != nil {
		logger.Error("publishing "+name+" event: "+err.Error(), err)
	}
}
