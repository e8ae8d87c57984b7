package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vnfmsqkek3/bedrock-observability-go/events"
	"github.com/vnfmsqkek3/bedrock-observability-go/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingSink collects delivered batches.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]events.Event
	block   chan struct{}
}

func (s *recordingSink) Deliver(ctx context.Context, batch []events.Event) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) delivered() [][]events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]events.Event(nil), s.batches...)
}

func batchOf(n int) []events.Event {
	batch := make([]events.Event, n)
	for i := range batch {
		batch[i] = events.Event{Type: events.TypeCompletion, Attributes: map[string]any{"seq": i}}
	}
	return batch
}

// =============================================================================
// DELIVERY TESTS
// =============================================================================

func TestEmitter_DeliversBatches(t *testing.T) {
	sink := &recordingSink{}
	emitter := telemetry.NewEmitter(sink)
	emitter.Start()

	emitter.Emit(batchOf(3))
	emitter.Emit(batchOf(1))

	require.Eventually(t, func() bool {
		return len(sink.delivered()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	emitter.Stop()

	stats := emitter.Stats()
	assert.Equal(t, int64(2), stats.Emitted)
	assert.Equal(t, int64(0), stats.Dropped)
}

func TestEmitter_BatchArrivesIntact(t *testing.T) {
	sink := &recordingSink{}
	emitter := telemetry.NewEmitter(sink)
	emitter.Start()
	defer emitter.Stop()

	emitter.Emit(batchOf(4))

	require.Eventually(t, func() bool {
		return len(sink.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Events of one exchange are delivered together, in order.
	batch := sink.delivered()[0]
	require.Len(t, batch, 4)
	for i, ev := range batch {
		assert.Equal(t, i, ev.Attributes["seq"])
	}
}

func TestEmitter_EmptyBatchIgnored(t *testing.T) {
	sink := &recordingSink{}
	emitter := telemetry.NewEmitter(sink)
	emitter.Start()
	emitter.Emit(nil)
	emitter.Emit([]events.Event{})
	emitter.Stop()

	assert.Empty(t, sink.delivered())
	assert.Equal(t, int64(0), emitter.Stats().Dropped)
}

// =============================================================================
// BACKPRESSURE TESTS
// =============================================================================

func TestEmitter_NeverBlocks_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &recordingSink{block: block}
	emitter := telemetry.NewEmitter(sink, telemetry.WithQueueSize(2))
	emitter.Start()

	// Far more batches than the queue holds, against a stuck sink. Every
	// Emit must return promptly.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			emitter.Emit(batchOf(1))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	stats := emitter.Stats()
	assert.Greater(t, stats.Dropped, int64(0))

	close(block)
	emitter.Stop()
}

func TestEmitter_DropCounterMonotonic(t *testing.T) {
	block := make(chan struct{})
	sink := &recordingSink{block: block}
	emitter := telemetry.NewEmitter(sink, telemetry.WithQueueSize(1))
	emitter.Start()

	var last int64
	for i := 0; i < 20; i++ {
		emitter.Emit(batchOf(1))
		got := emitter.Stats().Dropped
		assert.GreaterOrEqual(t, got, last)
		last = got
	}

	close(block)
	emitter.Stop()
}

// =============================================================================
// RETRY TESTS
// =============================================================================

func TestEmitter_RetriesThenSucceeds(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	sink := telemetry.SinkFunc(func(ctx context.Context, batch []events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	emitter := telemetry.NewEmitter(sink, telemetry.WithMaxRetries(5))
	emitter.Start()
	emitter.Emit(batchOf(1))

	require.Eventually(t, func() bool {
		return emitter.Stats().Emitted == 1
	}, 10*time.Second, 20*time.Millisecond)

	emitter.Stop()
	assert.Equal(t, int64(0), emitter.Stats().Failed)
}

func TestEmitter_GivesUpAfterBoundedRetries(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	sink := telemetry.SinkFunc(func(ctx context.Context, batch []events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("sink is down")
	})

	emitter := telemetry.NewEmitter(sink, telemetry.WithMaxRetries(2))
	emitter.Start()
	emitter.Emit(batchOf(1))

	require.Eventually(t, func() bool {
		return emitter.Stats().Failed == 1
	}, 10*time.Second, 20*time.Millisecond)

	emitter.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts) // initial try plus two retries
	assert.Equal(t, int64(0), emitter.Stats().Emitted)
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestEmitter_StopDrainsQueue(t *testing.T) {
	sink := &recordingSink{}
	emitter := telemetry.NewEmitter(sink)
	emitter.Start()

	for i := 0; i < 10; i++ {
		emitter.Emit(batchOf(1))
	}
	emitter.Stop()

	assert.Equal(t, int64(10), emitter.Stats().Emitted)
}

func TestEmitter_EmitAfterStopCountsDropped(t *testing.T) {
	sink := &recordingSink{}
	emitter := telemetry.NewEmitter(sink)
	emitter.Start()
	emitter.Stop()

	emitter.Emit(batchOf(1))
	emitter.Emit(batchOf(2))

	assert.Empty(t, sink.delivered())
	assert.Equal(t, int64(2), emitter.Stats().Dropped)
}

func TestEmitter_StopIdempotent(t *testing.T) {
	emitter := telemetry.NewEmitter(telemetry.DiscardSink{})
	emitter.Start()
	emitter.Stop()
	emitter.Stop()
}
