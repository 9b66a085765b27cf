package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

const (
	DefaultBufferSize  = 256
	DefaultSendTimeout = 10 * time.Second
)

// Dispatcher доставляет события получателям в отдельной горутине.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Event
	done    chan struct{}
	log     *slog.Logger
	timeout time.Duration

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewDispatcher создает диспетчер и сразу запускает воркер доставки
func NewDispatcher(log *slog.Logger, bufferSize int, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	d := &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Event, bufferSize),
		done:    make(chan struct{}),
		log:     log.With(slog.String("component", "event_dispatcher")),
		timeout: DefaultSendTimeout,
	}

	go d.run()

	return d
}

// Publish ставит событие в очередь. При переполненной очереди событие отбрасывается.
func (d *Dispatcher) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("dispatcher closed, event dropped", slog.String("outcome", string(ev.Outcome)))
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.log.Warn("event queue is full, event dropped", slog.String("outcome", string(ev.Outcome)))
	}
}

// Close прекращает прием событий и ждет доставки уже поставленных в очередь
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.queue {
		for _, sink := range d.sinks {
			d.deliver(sink, ev)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event sink panicked", slog.Any("panic", r))
		}
	}()

	if err := sink.Send(ctx, ev); err != nil {
		d.log.Warn("event delivery failed",
			slog.String("outcome", string(ev.Outcome)),
			slog.String("error", err.Error()),
		)
	}
}
