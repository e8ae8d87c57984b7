// Package events builds typed telemetry events from normalized exchanges.
//
// DESIGN: The event schema keeps the wire names of the original collector
// integration (LlmCompletion, LlmChatCompletionSummary, ...) so existing
// dashboard queries keep working. An Event is a type tag plus a flat
// attribute map of scalar values; correlation identifiers are always
// present, optional fields are omitted rather than zero-filled.
package events

import (
	"time"

	"github.com/vnfmsqkek3/bedrock-observability-go/adapters"
)

// Type identifies the kind of telemetry event.
type Type string

const (
	TypeCompletion  Type = "LlmCompletion"
	TypeChatSummary Type = "LlmChatCompletionSummary"
	TypeChatMessage Type = "LlmChatCompletionMessage"
	TypeEmbedding   Type = "LlmEmbedding"
	TypeEvaluation  Type = "LlmEvaluation"
	TypeFeedback    Type = "LlmFeedback"
	TypeError       Type = "LlmError"
)

// Event is one typed telemetry record. Attribute values are scalars
// (string, int, int64, float64, bool).
type Event struct {
	Type       Type           `json:"eventType"`
	Attributes map[string]any `json:"attributes"`
}

// Operation identifies the intercepted client operation.
type Operation string

const (
	OpCompletion       Operation = "invoke_model"
	OpCompletionStream Operation = "invoke_model_with_response_stream"
	OpConverse         Operation = "converse"
	OpEmbedding        Operation = "create_embedding"
	OpRetrieveGenerate Operation = "retrieve_and_generate"
)

// UpstreamError is the normalized view of a failed real invocation.
// Throttling codes are flagged so dashboards can separate rate limiting
// from hard failures.
type UpstreamError struct {
	Message     string
	Type        string
	Code        string
	Status      string
	RequestID   string
	RateLimited bool
}

// Exchange is the provider-independent view of one completed exchange.
// It is constructed once, after the real invocation returned or the stream
// was finalized, and is read-only from then on.
type Exchange struct {
	Operation  Operation
	ModelID    string
	Prompt     adapters.Prompt
	Completion string
	Usage      adapters.Usage
	Params     adapters.Parameters
	StopReason string
	Latency    time.Duration

	// Streaming bookkeeping. Truncated marks an exchange whose stream was
	// abandoned before exhaustion; DecodeFailures counts chunks that were
	// forwarded to the caller but skipped for accumulation.
	Streamed       bool
	Truncated      bool
	DecodeFailures int

	// Error is set when the real invocation failed.
	Error *UpstreamError
}
