package eventbus

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrEventDropped is returned by Publish when the event could not be queued.
var ErrEventDropped = errors.New("event dropped")

// Handler reacts to dispatched domain events.
type Handler interface {
	Handle(ctx context.Context, event domain.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event domain.Event) error

func (f HandlerFunc) Handle(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Dispatcher routes domain events to a fixed set of workers using consistent
// hashing on the user id, so events of one user are handled in order.
// It implements usecase.EventPublisher.
type Dispatcher struct {
	workers  []chan domain.Event
	handlers map[string][]Handler
	mu       sync.RWMutex
	wg       sync.WaitGroup
	stopped  atomic.Bool
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger, metrics *metrics.Metrics) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}

	d := &Dispatcher{
		workers:  make([]chan domain.Event, numWorkers),
		handlers: make(map[string][]Handler),
		log:      log.With().Str("component", "event_dispatcher").Logger(),
		metrics:  metrics,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Event, channelBuffer)
	}

	return d
}

// Subscribe registers h for the given event types.
func (d *Dispatcher) Subscribe(h Handler, eventTypes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, eventType := range eventTypes {
		d.handlers[eventType] = append(d.handlers[eventType], h)
	}
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// after which Publish drops every event.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}

	go func() {
		<-ctx.Done()
		d.stopped.Store(true)
	}()
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Publish queues the event on the worker responsible for its user without
// blocking. When that worker's buffer is full, or the workers have stopped,
// the event is dropped and ErrEventDropped is returned.
func (d *Dispatcher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return d.drop(event, err)
	}
	if d.stopped.Load() {
		return d.drop(event, ErrEventDropped)
	}

	select {
	case d.workers[d.shardIndex(event.UserID)] <- event:
		return nil
	default:
		return d.drop(event, ErrEventDropped)
	}
}

func (d *Dispatcher) drop(event domain.Event, err error) error {
	d.log.Warn().
		Str("event_type", event.Type).
		Str("user_id", event.UserID).
		Msg("event dropped")
	d.record(event.Type, "dropped")

	if errors.Is(err, ErrEventDropped) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEventDropped, err)
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Event) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.dispatch(ctx, id, event)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, workerID int, event domain.Event) {
	d.mu.RLock()
	handlers := d.handlers[event.Type]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.record(event.Type, "unhandled")
		return
	}

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			d.log.Error().Err(err).
				Str("event_type", event.Type).
				Str("user_id", event.UserID).
				Int("worker_id", workerID).
				Msg("event handling failed")
			d.record(event.Type, "failed")
			continue
		}
		d.record(event.Type, "handled")
	}
}

func (d *Dispatcher) record(eventType, status string) {
	if d.metrics != nil {
		d.metrics.EventsDispatched.WithLabelValues(eventType, status).Inc()
	}
}
