package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/sweeney/press-sensor/internal/logic"
)

// ErrQueueFull is returned by AsyncPublisher.Publish when the queue is full.
var ErrQueueFull = errors.New("mqtt publish queue full")

// DefaultQueueDepth is the AsyncPublisher queue size when none is given.
const DefaultQueueDepth = 32

// AsyncPublisher moves press publishing off the caller's goroutine.
//
// Publish only enqueues and never blocks; Run sends queued presses through
// the wrapped Publisher. System events and Close pass straight through.
type AsyncPublisher struct {
	next   Publisher
	queue  chan logic.PressEvent
	logger *slog.Logger

	dropped atomic.Uint64
}

// NewAsyncPublisher wraps next. Call Run to start sending.
func NewAsyncPublisher(next Publisher, depth int, logger *slog.Logger) *AsyncPublisher {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncPublisher{
		next:   next,
		queue:  make(chan logic.PressEvent, depth),
		logger: logger,
	}
}

// Publish queues event. A full queue drops it and returns ErrQueueFull.
func (a *AsyncPublisher) Publish(event logic.PressEvent) error {
	select {
	case a.queue <- event:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run sends queued presses until ctx is canceled, then flushes what is left.
func (a *AsyncPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return
		case ev := <-a.queue:
			a.send(ev)
		}
	}
}

func (a *AsyncPublisher) flush() {
	for {
		select {
		case ev := <-a.queue:
			a.send(ev)
		default:
			return
		}
	}
}

func (a *AsyncPublisher) send(ev logic.PressEvent) {
	if err := a.next.Publish(ev); err != nil {
		a.logger.Error("publish error", "button", ev.Button, "id", ev.ID, "error", err)
	}
}

// PublishSystem publishes synchronously through the wrapped Publisher.
func (a *AsyncPublisher) PublishSystem(event SystemEvent) error {
	return a.next.PublishSystem(event)
}

// Close closes the wrapped Publisher.
func (a *AsyncPublisher) Close() error {
	return a.next.Close()
}

// Pending returns the number of queued presses.
func (a *AsyncPublisher) Pending() int {
	return len(a.queue)
}

// Dropped returns how many presses were dropped on a full queue.
func (a *AsyncPublisher) Dropped() uint64 {
	return a.dropped.Load()
}
