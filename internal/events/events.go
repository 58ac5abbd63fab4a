// Package events publishes attendance notifications to downstream
// consumers (payroll, notifications). Publishing is best-effort from the
// caller's perspective: a broker outage must never fail a recognition.
package events

import (
	"context"
	"sync"
	"time"
)

// AttendanceEvent is the wire payload emitted after a successful recognition.
type AttendanceEvent struct {
	UserID     int64     `json:"user_id"`
	EventType  string    `json:"event_type"`
	Confidence float64   `json:"confidence"`
	Location   string    `json:"location,omitempty"`
	LogID      string    `json:"log_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers attendance events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event AttendanceEvent) error
	Close() error
}

// NopPublisher discards all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event AttendanceEvent) error { return nil }
func (NopPublisher) Close() error                                             { return nil }

// MemoryPublisher records events in memory, for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []AttendanceEvent

	PublishErr error
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, event AttendanceEvent) error {
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a snapshot of published events.
func (p *MemoryPublisher) Events() []AttendanceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]AttendanceEvent, len(p.events))
	copy(out, p.events)
	return out
}
