package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/vnfmsqkek3/bedrock-observability-go/events"
)

const (
	// DefaultQueueSize bounds the number of pending batches.
	DefaultQueueSize = 256

	defaultWorkers     = 2
	defaultMaxRetries  = 3
	defaultDeliverWait = 10 * time.Second
)

// Stats is a snapshot of emitter counters.
type Stats struct {
	Emitted int64 // batches delivered to the sink
	Dropped int64 // batches dropped because the queue was full
	Failed  int64 // batches abandoned after exhausting retries
}

// Emitter queues event batches and delivers them in the background.
type Emitter struct {
	sink       Sink
	queue      chan []events.Event
	maxRetries uint64

	emitted atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
	stopped atomic.Bool

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// EmitterOption customizes an Emitter.
type EmitterOption func(*Emitter)

// WithQueueSize overrides the queue capacity.
func WithQueueSize(n int) EmitterOption {
	return func(e *Emitter) {
		if n > 0 {
			e.queue = make(chan []events.Event, n)
		}
	}
}

// WithMaxRetries overrides how many times a failed delivery is retried.
func WithMaxRetries(n int) EmitterOption {
	return func(e *Emitter) {
		if n >= 0 {
			e.maxRetries = uint64(n)
		}
	}
}

// NewEmitter creates an Emitter delivering to sink. Call Start before
// emitting and Stop to flush on shutdown.
func NewEmitter(sink Sink, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		sink:       sink,
		queue:      make(chan []events.Event, DefaultQueueSize),
		maxRetries: defaultMaxRetries,
		stopChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the delivery workers.
func (e *Emitter) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	log.Debug().Int("queue_size", cap(e.queue)).Msg("telemetry: starting delivery workers")
	for i := 0; i < defaultWorkers; i++ {
		e.wg.Add(1)
		go e.deliverLoop(i)
	}
}

// Stop drains the queue and stops the workers. Batches still queued are
// delivered; batches emitted after Stop are dropped.
func (e *Emitter) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.stopped.Store(true)
	close(e.stopChan)
	e.mu.Unlock()
	e.wg.Wait()

	// Drain whatever the workers had not picked up yet.
	for {
		select {
		case batch := <-e.queue:
			e.deliver(batch)
		default:
			log.Debug().
				Int64("emitted", e.emitted.Load()).
				Int64("dropped", e.dropped.Load()).
				Msg("telemetry: delivery workers stopped")
			return
		}
	}
}

// Emit enqueues a batch. It never blocks: when the queue is full, or the
// emitter has already stopped, the batch is dropped and the drop counter
// incremented.
func (e *Emitter) Emit(batch []events.Event) {
	if len(batch) == 0 {
		return
	}
	if e.stopped.Load() {
		n := e.dropped.Add(1)
		log.Warn().Int64("total_dropped", n).Int("batch_size", len(batch)).Msg("telemetry: emitter stopped, batch dropped")
		return
	}
	select {
	case e.queue <- batch:
	default:
		n := e.dropped.Add(1)
		log.Warn().Int64("total_dropped", n).Int("batch_size", len(batch)).Msg("telemetry: queue full, batch dropped")
	}
}

// Stats returns a snapshot of the emitter counters.
func (e *Emitter) Stats() Stats {
	return Stats{
		Emitted: e.emitted.Load(),
		Dropped: e.dropped.Load(),
		Failed:  e.failed.Load(),
	}
}

func (e *Emitter) deliverLoop(workerID int) {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopChan:
			return
		case batch := <-e.queue:
			e.deliver(batch)
		}
	}
}

// deliver sends one batch with exponential backoff, giving up after the
// configured number of retries so a dead sink cannot pin a worker.
func (e *Emitter) deliver(batch []events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDeliverWait)
	defer cancel()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.maxRetries), ctx)

	err := backoff.Retry(func() error {
		return e.sink.Deliver(ctx, batch)
	}, policy)
	if err != nil {
		e.failed.Add(1)
		log.Error().Err(err).Int("batch_size", len(batch)).Msg("telemetry: delivery failed, batch abandoned")
		return
	}
	e.emitted.Add(1)
}
