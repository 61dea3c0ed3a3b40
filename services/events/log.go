package eventsvc

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core"
)

// LogPublisher logs events; used when no broker is configured.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p LogPublisher) Publish(_ context.Context, evt core.Event) error {
	p.logger.Info("event "+evt.Name, map[string]interface{}{"occurredAt": evt.OccurredAt, "payload": evt.Payload})
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, evt core.Event) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	return nil
}

// Events returns the recorded events named `name`, or all of them when name is empty.
func (r *Recorder) Events(name string) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	evts := make([]core.Event, 0, len(r.events))
	for _, evt := range r.events {
		if name == "" || evt.Name == name {
			evts = append(evts, evt)
		}
	}
	return evts
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
