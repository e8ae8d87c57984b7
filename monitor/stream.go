package monitor

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vnfmsqkek3/bedrock-observability-go/adapters"
	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// accumulated is the snapshot handed to the finalize callback once a stream
// is done.
type accumulated struct {
	text           string
	usage          adapters.Usage
	stopReason     string
	truncated      bool
	decodeFailures int
	err            error
}

// accumulator reconstructs the completion from observed chunks. It fires its
// callback exactly once: on EOF, on a stream error, on close before EOF, or
// after the idle timeout when the consumer abandoned the stream.
type accumulator struct {
	adapter adapters.Adapter
	onFinal func(accumulated)
	idle    time.Duration

	mu             sync.Mutex
	buf            strings.Builder
	usage          adapters.Usage
	stopReason     string
	decodeFailures int
	timer          *time.Timer
	once           sync.Once
}

func newAccumulator(adapter adapters.Adapter, idle time.Duration, onFinal func(accumulated)) *accumulator {
	a := &accumulator{adapter: adapter, onFinal: onFinal, idle: idle}
	if idle > 0 {
		a.timer = time.AfterFunc(idle, func() {
			log.Debug().Msg("monitor: stream idle, finalizing as truncated")
			a.finalize(true, nil)
		})
	}
	return a
}

// observe records one chunk. A chunk the adapter cannot decode is counted
// but never blocks the stream.
func (a *accumulator) observe(chunk []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Reset(a.idle)
	}

	text, ok := a.adapter.ExtractChunkText(chunk)
	if ok {
		a.buf.WriteString(text)
	} else if !jsonx.Valid(chunk) {
		a.decodeFailures++
		log.Debug().Int("failures", a.decodeFailures).Msg("monitor: undecodable stream chunk")
	}

	// Usage and stop reason usually arrive on the final chunk; keep the
	// latest values seen.
	if u := a.adapter.ExtractUsage(chunk); u.Known() {
		a.usage = u
	}
	if sr := a.adapter.ExtractStopReason(chunk); sr != "" {
		a.stopReason = sr
	}
}

func (a *accumulator) finalize(truncated bool, err error) {
	a.once.Do(func() {
		a.mu.Lock()
		if a.timer != nil {
			a.timer.Stop()
		}
		final := accumulated{
			text:           a.buf.String(),
			usage:          a.usage,
			stopReason:     a.stopReason,
			truncated:      truncated,
			decodeFailures: a.decodeFailures,
			err:            err,
		}
		a.mu.Unlock()
		a.onFinal(final)
	})
}

// teeStream forwards chunks from the upstream stream unmodified while the
// accumulator observes them.
type teeStream struct {
	src ResponseStream
	acc *accumulator
}

var _ ResponseStream = (*teeStream)(nil)

func newTeeStream(src ResponseStream, acc *accumulator) *teeStream {
	return &teeStream{src: src, acc: acc}
}

// Recv returns the next upstream chunk byte for byte.
func (t *teeStream) Recv() ([]byte, error) {
	chunk, err := t.src.Recv()
	if err == io.EOF {
		t.acc.finalize(false, nil)
		return nil, io.EOF
	}
	if err != nil {
		t.acc.finalize(true, err)
		return nil, err
	}
	t.acc.observe(chunk)
	return chunk, nil
}

// Close closes the upstream stream. Closing before EOF marks the exchange
// truncated.
func (t *teeStream) Close() error {
	err := t.src.Close()
	t.acc.finalize(true, nil)
	return err
}
