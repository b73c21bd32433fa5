package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrUntypedEvent is returned when an event without a type is published.
var ErrUntypedEvent = errors.New("events: event has no type")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// FailureHook observes handler failures, panics included.
type FailureHook func(event Event, err error)

// Option configures the in-memory dispatcher.
type Option func(*ticketEventBus)

// WithFailureHook reports every failed delivery to hook.
func WithFailureHook(hook FailureHook) Option {
	return func(b *ticketEventBus) { b.onFailure = hook }
}

// ticketEventBus delivers events synchronously on the publishing goroutine.
// A failing subscriber never stops delivery to the rest and never fails the
// operation that published the event.
type ticketEventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]EventHandler
	logger      *zap.Logger
	onFailure   FailureHook
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher(logger *zap.Logger, opts ...Option) Dispatcher {
	b := &ticketEventBus{
		subscribers: make(map[EventType][]EventHandler),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *ticketEventBus) Publish(ctx context.Context, event Event) error {
	if event.Type == "" {
		return ErrUntypedEvent
	}
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := deliver(ctx, handler, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
			if b.onFailure != nil {
				b.onFailure(event, err)
			}
		}
	}
	return nil
}

func (b *ticketEventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func deliver(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}
