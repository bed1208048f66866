package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// Publisher is the fire-and-forget side of the bus handed to producers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pending  sync.WaitGroup
	logger   *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{handlers: map[string][]Handler{}, logger: logger}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	n := len(eb.handlers[eventType])
	eb.mu.Unlock()

	eb.logger.Info("event handler registered", "event_type", eventType, "total_handlers", n)
}

// subscribers returns a snapshot so handlers registered mid-publish are not raced.
func (eb *EventBus) subscribers(eventType string) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	hs := eb.handlers[eventType]
	if len(hs) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", eventType)
		return nil
	}
	return append([]Handler(nil), hs...)
}

// Publish runs every handler in its own goroutine with a context detached
// from the caller's cancellation. Handler errors and panics are logged only.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	hs := eb.subscribers(event.EventType())
	if hs == nil {
		return nil
	}

	eb.logger.Debug("publishing event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(hs))

	bg := context.WithoutCancel(ctx)
	eb.pending.Add(len(hs))
	for _, h := range hs {
		go func(h Handler) {
			defer eb.pending.Done()
			defer func() {
				if p := recover(); p != nil {
					eb.logger.Error("event handler panicked", "event_type", event.EventType(), "panic", p)
				}
			}()
			eb.report(event, h(bg, event))
		}(h)
	}
	return nil
}

// PublishSync runs handlers in order and stops at the first failure.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range eb.subscribers(event.EventType()) {
		if err := h(ctx, event); err != nil {
			eb.report(event, err)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (eb *EventBus) report(event Event, err error) {
	if err == nil {
		return
	}
	eb.logger.Error("event handler failed",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"error", err)
}

// Drain blocks until asynchronously published handlers have returned or ctx ends.
func (eb *EventBus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		eb.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
