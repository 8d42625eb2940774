// Package events records auction outcomes for analytics. Sinks are
// best-effort side channels: a sink failure is logged and counted, never
// surfaced to the auction path.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/observability"
)

// Type identifies an event kind.
type Type string

const (
	TypeRequest    Type = "request"
	TypeBid        Type = "bid"
	TypeWin        Type = "win"
	TypeNoFill     Type = "no_fill"
	TypeImpression Type = "impression"
	TypeClick      Type = "click"
	TypeError      Type = "error"
)

// ValidType reports whether t is a known event type.
func ValidType(t Type) bool {
	switch t {
	case TypeRequest, TypeBid, TypeWin, TypeNoFill, TypeImpression, TypeClick, TypeError:
		return true
	}
	return false
}

// Event is one structured auction outcome record.
type Event struct {
	Type      Type      `json:"type"`
	AppID     string    `json:"appId,omitempty"`
	AdUnitID  string    `json:"adUnitId"`
	Platform  string    `json:"platform,omitempty"`
	AdID      string    `json:"adId,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink is a durable-enough destination for events.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(ctx context.Context, ev Event) error { return nil }
func (Nop) Close() error                             { return nil }

// Multi fans each event out to several sinks. Individual sink failures are
// logged and counted; Emit itself never fails.
type Multi struct {
	sinks   []named
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

type named struct {
	name string
	sink Sink
}

// NewMulti constructs a fan-out sink.
func NewMulti(logger *zap.Logger, metrics observability.MetricsRegistry) *Multi {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Multi{logger: logger, metrics: metrics}
}

// Add registers a destination under a name used in error metrics.
func (m *Multi) Add(name string, s Sink) *Multi {
	m.sinks = append(m.sinks, named{name: name, sink: s})
	return m
}

func (m *Multi) Emit(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.metrics.IncrementEvent(string(ev.Type))
	for _, s := range m.sinks {
		if err := s.sink.Emit(ctx, ev); err != nil {
			m.metrics.IncrementEventSinkErrors(s.name)
			m.logger.Error("event sink write failed",
				zap.String("sink", s.name),
				zap.String("event_type", string(ev.Type)),
				zap.String("ad_unit_id", ev.AdUnitID),
				zap.Error(err))
		}
	}
	return nil
}

func (m *Multi) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Capture retains events in memory. Test double.
type Capture struct {
	mu     sync.Mutex
	events []Event
}

// NewCapture constructs an empty Capture sink.
func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Emit(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *Capture) Close() error { return nil }

// Events returns a copy of everything emitted so far.
func (c *Capture) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// ByType returns emitted events of one type.
func (c *Capture) ByType(t Type) []Event {
	var out []Event
	for _, ev := range c.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
