package trace_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfmsqkek3/bedrock-observability-go/trace"
)

func TestBegin_GeneratesIdentifiers(t *testing.T) {
	tc := trace.Begin()

	_, err := uuid.Parse(tc.TraceID)
	require.NoError(t, err)
	_, err = uuid.Parse(tc.CompletionID)
	require.NoError(t, err)

	assert.Empty(t, tc.ConversationID)
	assert.Empty(t, tc.UserID)
	assert.NotEqual(t, tc.TraceID, tc.CompletionID)
}

func TestBegin_HonorsCallerIdentifiers(t *testing.T) {
	tc := trace.Begin(
		trace.WithTraceID("trace-1"),
		trace.WithCompletionID("comp-1"),
		trace.WithConversationID("conv-1"),
		trace.WithUserID("user-1"),
	)

	assert.Equal(t, "trace-1", tc.TraceID)
	assert.Equal(t, "comp-1", tc.CompletionID)
	assert.Equal(t, "conv-1", tc.ConversationID)
	assert.Equal(t, "user-1", tc.UserID)
}

func TestBegin_DistinctAcrossCalls(t *testing.T) {
	a := trace.Begin()
	b := trace.Begin()
	assert.NotEqual(t, a.TraceID, b.TraceID)
}

func TestSpan_SharesTraceOwnsCompletion(t *testing.T) {
	tc := trace.Begin(trace.WithConversationID("conv-1"), trace.WithUserID("user-1"))

	retrieval := tc.Span("retrieval")
	generation := tc.Span("generation")

	assert.Equal(t, tc.TraceID, retrieval.Context.TraceID)
	assert.Equal(t, tc.TraceID, generation.Context.TraceID)
	assert.NotEqual(t, tc.CompletionID, retrieval.Context.CompletionID)
	assert.NotEqual(t, retrieval.Context.CompletionID, generation.Context.CompletionID)

	// Conversation and user identity propagate to spans.
	assert.Equal(t, "conv-1", retrieval.Context.ConversationID)
	assert.Equal(t, "user-1", retrieval.Context.UserID)
	assert.Equal(t, "retrieval", retrieval.Name)
}

func TestForExchange_FirstKeepsIDLaterGetFresh(t *testing.T) {
	tc := trace.Begin(trace.WithCompletionID("comp-1"), trace.WithUserID("user-1"))

	first := tc.ForExchange()
	second := tc.ForExchange()
	third := tc.ForExchange()

	assert.Equal(t, "comp-1", first.CompletionID)
	assert.NotEqual(t, first.CompletionID, second.CompletionID)
	assert.NotEqual(t, second.CompletionID, third.CompletionID)

	// Trace identity and caller metadata are shared across exchanges.
	assert.Equal(t, tc.TraceID, second.TraceID)
	assert.Equal(t, tc.TraceID, third.TraceID)
	assert.Equal(t, "user-1", second.UserID)
}

func TestSpan_Elapsed(t *testing.T) {
	span := trace.Begin().Span("work")
	assert.GreaterOrEqual(t, span.Elapsed().Nanoseconds(), int64(0))
}

func TestContext_RoundTrip(t *testing.T) {
	tc := trace.Begin()
	ctx := trace.NewContext(context.Background(), tc)
	assert.Same(t, tc, trace.FromContext(ctx))
}

func TestFromContext_MissingReturnsNil(t *testing.T) {
	assert.Nil(t, trace.FromContext(context.Background()))
}
