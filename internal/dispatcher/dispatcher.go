// Package dispatcher routes recorder commands to their handlers. Handlers
// registered with Buffered run on their own goroutine behind a queue, so the
// match loop only blocks on storage when a queue is full and Blocking was set.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/onthepitch/matchsim/internal/dispatcher"

// Event is a command published by the running match. Payload carries the
// record for the command, typically a pointer to a pkg/core type.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*route)

// Buffered queues events for the handler, which then runs on its own
// goroutine. Events are handled in publish order.
func Buffered(size int) Option {
	return func(r *route) { r.size = size }
}

// Blocking makes Dispatch wait for room in a full queue instead of dropping.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged logs every event at debug level and failures at error level.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

type route struct {
	command  string
	handle   HandlerFunc
	size     int
	blocking bool
	logged   bool
	queue    chan Event
	attrs    metric.MeasurementOption
}

type instruments struct {
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	depth     metric.Int64ObservableGauge
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	log    Logger
	routes map[string]*route
	inst   instruments

	mu      sync.RWMutex
	closed  bool
	workers sync.WaitGroup
	pending sync.WaitGroup
}

// New creates a Dispatcher. Its instruments come from the global OTel meter,
// which is a no-op until a meter provider is installed.
func New(log Logger) (*Dispatcher, error) {
	d := &Dispatcher{log: log, routes: make(map[string]*route)}
	if err := d.instrument(otel.Meter(instrumentationName)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error
	if d.inst.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled by buffered handlers")); err != nil {
		return fmt.Errorf("processed counter: %w", err)
	}
	if d.inst.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events dropped on a full queue")); err != nil {
		return fmt.Errorf("dropped counter: %w", err)
	}
	if d.inst.depth, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting per command")); err != nil {
		return fmt.Errorf("queue gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for _, r := range d.routes {
			if r.queue != nil {
				o.ObserveInt64(d.inst.depth, int64(len(r.queue)), r.attrs)
			}
		}
		return nil
	}, d.inst.depth)
	if err != nil {
		return fmt.Errorf("queue gauge callback: %w", err)
	}
	return nil
}

// Register adds a handler for command, replacing any earlier one. Register
// all handlers before the first Dispatch.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{
		command: command,
		handle:  h,
		attrs:   metric.WithAttributes(attribute.String("command", command)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logged {
		r.handle = d.logged(command, r.handle)
	}
	if r.size > 0 {
		r.queue = make(chan Event, r.size)
		d.workers.Add(1)
		go d.work(r)
	}

	d.mu.Lock()
	d.routes[command] = r
	d.mu.Unlock()
}

func (d *Dispatcher) work(r *route) {
	defer d.workers.Done()
	for e := range r.queue {
		if _, err := r.handle(e); err != nil {
			d.log.Error("buffered handler failed", "command", r.command, "error", err)
		}
		d.inst.processed.Add(context.Background(), 1, r.attrs)
		d.pending.Done()
	}
}

// Dispatch routes an event to its handler. Buffered handlers return "queued"
// once the event is in their queue.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	closed := d.closed
	d.mu.RUnlock()

	switch {
	case closed:
		return nil, ErrClosed
	case !ok:
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if r.queue == nil {
		return r.handle(e)
	}

	d.pending.Add(1)
	if r.blocking {
		r.queue <- e
		return "queued", nil
	}
	select {
	case r.queue <- e:
		return "queued", nil
	default:
		d.pending.Done()
		d.inst.dropped.Add(context.Background(), 1, r.attrs)
		return nil, fmt.Errorf("queue full: %s", e.Command)
	}
}

// Publish is Dispatch for callers that only care about the error.
func (d *Dispatcher) Publish(command string, payload any) error {
	_, err := d.Dispatch(Event{Command: command, Payload: payload})
	return err
}

// QueueDepth returns the number of events waiting across all queues.
func (d *Dispatcher) QueueDepth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, r := range d.routes {
		n += len(r.queue)
	}
	return n
}

// Drain blocks until every event queued so far has been handled. It must be
// called from the goroutine that dispatches.
func (d *Dispatcher) Drain() {
	d.pending.Wait()
}

// Close stops accepting events and waits for every queue to empty.
// Dispatch must not be called concurrently with Close.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()

	d.workers.Wait()
}

// HasHandler reports whether a handler is registered for command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.log.Debug("handling event", "command", command, "payload", fmt.Sprintf("%T", e.Payload))
		result, err := h(e)
		if err != nil {
			d.log.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.log.Debug("event complete", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
