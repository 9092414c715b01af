package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/staybook/booking-api/internal/api/metrics"
	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

var (
	// ErrQueueFull is returned by Enqueue when the target worker is saturated.
	ErrQueueFull = errors.New("event queue full")
	// ErrDispatcherClosed is returned by Enqueue after Shutdown.
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

var _ ports.EventSink = (*Dispatcher)(nil)

// Dispatcher routes booking events to a fixed set of workers using consistent
// hashing on the housing ID, guaranteeing per-housing event ordering.
type Dispatcher struct {
	mu      sync.RWMutex
	closed  bool
	workers []chan domain.BookingEvent
	wg      sync.WaitGroup
	service ports.EventService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.EventService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.BookingEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.BookingEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// their channel is drained after Shutdown.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its housing. It never
// blocks: a full worker channel yields ErrQueueFull.
func (d *Dispatcher) Enqueue(event domain.BookingEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	idx := d.shardIndex(event.HousingID.String())
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.EventsErrorsTotal.WithLabelValues("queue_full").Inc()
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits for queued ones to be processed,
// or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a housing ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.BookingEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.service.Process(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("event_id", event.ID.String()).
					Str("housing_id", event.HousingID.String()).
					Int("worker_id", id).
					Msg("event processing failed")
			}
		}
	}
}
