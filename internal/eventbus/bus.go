// Package eventbus provides an in-process pub/sub bus for planner events.
// The planning path publishes events; subscribers process them
// asynchronously on a single consumer goroutine.
package eventbus

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/matthewbaird/ksqlplan/internal/event"
)

// Handler processes a planner event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.PlanEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.PlanEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.PlanEvent) error {
	return f(ctx, evt)
}

// Bus is an in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in order, one event at a time.
type Bus struct {
	logger log.Logger

	mu          sync.RWMutex
	subscribers []namedHandler
	closed      bool
	events      chan event.PlanEvent
	done        chan struct{}
	stopOnce    sync.Once
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a Bus with the given channel buffer size.
func New(bufSize int, logger log.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Bus{
		logger: log.With(logger, "component", "eventbus"),
		events: make(chan event.PlanEvent, bufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. It never blocks: when the buffer is
// full the event is dropped and a warning is logged. Events published after
// Stop are dropped.
func (b *Bus) Publish(_ context.Context, evt event.PlanEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		level.Debug(b.logger).Log("msg", "bus stopped, dropping event", "type", evt.EventType, "id", evt.ID)
		return
	}
	select {
	case b.events <- evt:
	default:
		level.Warn(b.logger).Log("msg", "buffer full, dropping event", "type", evt.EventType, "id", evt.ID)
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called, draining what is buffered.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to finish.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.events)
		b.mu.Unlock()
	})
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.PlanEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			level.Error(b.logger).Log("msg", "handler failed", "handler", s.name, "type", evt.EventType, "err", err)
		}
	}
}
