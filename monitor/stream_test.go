package monitor_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfmsqkek3/bedrock-observability-go/events"
	"github.com/vnfmsqkek3/bedrock-observability-go/monitor"
)

func drain(t *testing.T, stream monitor.ResponseStream) [][]byte {
	t.Helper()
	var chunks [][]byte
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

// =============================================================================
// REPLAY TESTS
// =============================================================================

func TestStream_ReplayIdenticalAndAccumulates(t *testing.T) {
	fake := &fakeBedrock{chunks: [][]byte{
		[]byte(`{"delta":{"text":"A"}}`),
		[]byte(`{"delta":{"text":"B"}}`),
	}}
	client, sink := wrapWithSink(t, fake, testConfig())

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-3-haiku-20240307-v1:0",
		Body:    []byte(`{"messages":[{"role":"user","content":"go"}]}`),
	})
	require.NoError(t, err)

	chunks := drain(t, out.Stream)
	require.Len(t, chunks, 2)
	assert.Equal(t, fake.chunks[0], chunks[0], "chunks must pass through byte for byte")
	assert.Equal(t, fake.chunks[1], chunks[1])

	evs := sink.waitFor(t, 1)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeCompletion, evs[0].Type)
	assert.Equal(t, "AB", evs[0].Attributes["output"])
	assert.Equal(t, true, evs[0].Attributes["is_streaming"])
	assert.NotContains(t, evs[0].Attributes, "truncated")
}

func TestStream_UsageAndStopReasonFromFinalChunk(t *testing.T) {
	fake := &fakeBedrock{chunks: [][]byte{
		[]byte(`{"delta":{"text":"hi"}}`),
		[]byte(`{"stop_reason":"end_turn","usage":{"input_tokens":4,"output_tokens":1}}`),
	}}
	client, sink := wrapWithSink(t, fake, testConfig())

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.NoError(t, err)
	drain(t, out.Stream)

	evs := sink.waitFor(t, 1)
	assert.Equal(t, "end_turn", evs[0].Attributes["stop_reason"])
	assert.Equal(t, 4, evs[0].Attributes["input_tokens"])
	assert.Equal(t, 1, evs[0].Attributes["output_tokens"])
	assert.Equal(t, 5, evs[0].Attributes["total_tokens"])
}

// =============================================================================
// DECODE FAILURE TESTS
// =============================================================================

func TestStream_UndecodableChunkForwardedAndCounted(t *testing.T) {
	garbage := []byte("\x00\x01 not json")
	fake := &fakeBedrock{chunks: [][]byte{
		[]byte(`{"delta":{"text":"A"}}`),
		garbage,
		[]byte(`{"delta":{"text":"B"}}`),
	}}
	client, sink := wrapWithSink(t, fake, testConfig())

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.NoError(t, err)

	chunks := drain(t, out.Stream)
	require.Len(t, chunks, 3)
	assert.Equal(t, garbage, chunks[1], "undecodable chunks still reach the caller")

	evs := sink.waitFor(t, 1)
	assert.Equal(t, "AB", evs[0].Attributes["output"])
	assert.Equal(t, 1, evs[0].Attributes["chunk_decode_failures"])
}

// =============================================================================
// ABANDONMENT TESTS
// =============================================================================

func TestStream_CloseBeforeEOF_Truncated(t *testing.T) {
	fake := &fakeBedrock{chunks: [][]byte{
		[]byte(`{"delta":{"text":"A"}}`),
		[]byte(`{"delta":{"text":"B"}}`),
	}}
	client, sink := wrapWithSink(t, fake, testConfig())

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.NoError(t, err)

	chunk, err := out.Stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, fake.chunks[0], chunk)
	require.NoError(t, out.Stream.Close())

	evs := sink.waitFor(t, 1)
	require.Len(t, evs, 1)
	assert.Equal(t, "A", evs[0].Attributes["output"])
	assert.Equal(t, true, evs[0].Attributes["truncated"])
}

func TestStream_AbandonedStream_FinalizedByIdleTimeout(t *testing.T) {
	fake := &fakeBedrock{chunks: [][]byte{
		[]byte(`{"delta":{"text":"A"}}`),
		[]byte(`{"delta":{"text":"B"}}`),
	}}
	cfg := testConfig()
	cfg.StreamIdleTimeout = 50 * time.Millisecond
	client, sink := wrapWithSink(t, fake, cfg)

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.NoError(t, err)

	// Read one chunk, then walk away without closing.
	_, err = out.Stream.Recv()
	require.NoError(t, err)

	evs := sink.waitFor(t, 1)
	require.Len(t, evs, 1)
	assert.Equal(t, "A", evs[0].Attributes["output"])
	assert.Equal(t, true, evs[0].Attributes["truncated"])
}

func TestStream_FinalizedOnce(t *testing.T) {
	fake := &fakeBedrock{chunks: [][]byte{[]byte(`{"delta":{"text":"A"}}`)}}
	client, sink := wrapWithSink(t, fake, testConfig())

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.NoError(t, err)

	drain(t, out.Stream)
	require.NoError(t, out.Stream.Close())
	require.NoError(t, out.Stream.Close())

	// EOF finalized the exchange; the Closes afterwards add nothing.
	sink.waitFor(t, 1)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sink.all(), 1)
}

// =============================================================================
// STREAM ERROR TESTS
// =============================================================================

func TestStream_MidStreamError_EmitsErrorEvent(t *testing.T) {
	fake := &fakeBedrock{
		chunks:    [][]byte{[]byte(`{"delta":{"text":"A"}}`)},
		streamErr: errors.New("connection reset"),
	}
	client, sink := wrapWithSink(t, fake, testConfig())

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.NoError(t, err)

	_, err = out.Stream.Recv()
	require.NoError(t, err)
	_, err = out.Stream.Recv()
	require.EqualError(t, err, "connection reset")

	evs := sink.waitFor(t, 1)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeError, evs[0].Type)
	assert.Equal(t, "connection reset", evs[0].Attributes["error_message"])
}

// =============================================================================
// BYPASS TESTS
// =============================================================================

func TestStream_DisabledStreamingEvents_PassThrough(t *testing.T) {
	fake := &fakeBedrock{chunks: [][]byte{[]byte(`{"delta":{"text":"A"}}`)}}
	cfg := testConfig()
	cfg.DisableStreamingEvents = true
	client, sink := wrapWithSink(t, fake, cfg)

	out, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.NoError(t, err)

	chunks := drain(t, out.Stream)
	require.Len(t, chunks, 1)
	require.NoError(t, out.Stream.Close())

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.all(), "no events for streams when streaming telemetry is disabled")
}

func TestStream_UpstreamFailureBeforeStreaming(t *testing.T) {
	fake := &fakeBedrock{err: &throttleErr{msg: "throttled"}}
	client, sink := wrapWithSink(t, fake, testConfig())

	_, err := client.InvokeModelWithResponseStream(context.Background(), &monitor.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"go"}`),
	})
	require.Error(t, err)

	evs := sink.waitFor(t, 1)
	assert.Equal(t, events.TypeError, evs[0].Type)
	assert.Equal(t, true, evs[0].Attributes["rate_limit_exceeded"])
}
