package events

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vnfmsqkek3/bedrock-observability-go/adapters"
	"github.com/vnfmsqkek3/bedrock-observability-go/trace"
)

// maxContentLength caps prompt/completion/message text stored in an
// attribute, matching the collector's per-attribute limit.
const maxContentLength = 4095

// Builder converts normalized exchanges into telemetry events.
type Builder struct {
	serviceName     string
	trackTokenUsage bool
	tokens          TokenCounter
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithTokenCounter sets the estimator used when the provider reported no
// token usage. Without one, unknown usage is simply omitted.
func WithTokenCounter(tc TokenCounter) BuilderOption {
	return func(b *Builder) { b.tokens = tc }
}

// WithoutTokenUsage disables token accounting entirely.
func WithoutTokenUsage() BuilderOption {
	return func(b *Builder) { b.trackTokenUsage = false }
}

// NewBuilder creates a Builder for the given service name.
func NewBuilder(serviceName string, opts ...BuilderOption) *Builder {
	b := &Builder{serviceName: serviceName, trackTokenUsage: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build converts one exchange into its telemetry events. A failed exchange
// yields a single LlmError event; a conversational exchange yields one
// summary plus one message event per turn, all sharing the exchange's
// completion id; every other operation yields a single event of its kind.
func (b *Builder) Build(ex *Exchange, tc *trace.Context) []Event {
	if ex.Error != nil {
		return []Event{b.buildError(ex, tc)}
	}

	switch ex.Operation {
	case OpConverse:
		return b.buildChat(ex, tc)
	case OpEmbedding:
		return []Event{b.buildEmbedding(ex, tc)}
	default:
		return []Event{b.buildCompletion(ex, tc)}
	}
}

// =============================================================================
// COMPLETION / EMBEDDING / ERROR
// =============================================================================

func (b *Builder) buildCompletion(ex *Exchange, tc *trace.Context) Event {
	attrs := b.baseAttributes(ex, tc)

	if ex.Prompt.Text != "" {
		attrs["input"] = truncate(ex.Prompt.Text)
	}
	if ex.Completion != "" {
		attrs["output"] = truncate(ex.Completion)
	}
	if ex.StopReason != "" {
		attrs["stop_reason"] = ex.StopReason
	}
	if ex.Streamed {
		attrs["is_streaming"] = true
	}
	if ex.Truncated {
		attrs["truncated"] = true
	}
	if ex.DecodeFailures > 0 {
		attrs["chunk_decode_failures"] = ex.DecodeFailures
	}
	if ex.Operation == OpRetrieveGenerate {
		attrs["api_type"] = "rag"
	}

	b.addUsage(attrs, ex)
	addParameters(attrs, ex.Params)

	return Event{Type: TypeCompletion, Attributes: attrs}
}

func (b *Builder) buildEmbedding(ex *Exchange, tc *trace.Context) Event {
	attrs := b.baseAttributes(ex, tc)
	if ex.Prompt.Text != "" {
		attrs["input"] = truncate(ex.Prompt.Text)
	}
	b.addUsage(attrs, ex)
	return Event{Type: TypeEmbedding, Attributes: attrs}
}

func (b *Builder) buildError(ex *Exchange, tc *trace.Context) Event {
	attrs := b.baseAttributes(ex, tc)
	attrs["operation"] = string(ex.Operation)
	attrs["error_message"] = ex.Error.Message
	if ex.Error.Type != "" {
		attrs["error_type"] = ex.Error.Type
	}
	if ex.Error.Code != "" {
		attrs["error_code"] = ex.Error.Code
	}
	if ex.Error.Status != "" {
		attrs["error_status"] = ex.Error.Status
	}
	if ex.Error.RequestID != "" {
		attrs["error_request_id"] = ex.Error.RequestID
	}
	if ex.Error.RateLimited {
		attrs["rate_limit_exceeded"] = true
	}
	return Event{Type: TypeError, Attributes: attrs}
}

// =============================================================================
// CHAT - summary plus one event per message
// =============================================================================

func (b *Builder) buildChat(ex *Exchange, tc *trace.Context) []Event {
	messages := ex.Prompt.Messages
	if ex.Completion != "" {
		messages = append(messages[:len(messages):len(messages)],
			adapters.Message{Role: "assistant", Content: ex.Completion})
	}

	out := make([]Event, 0, len(messages)+1)

	summary := b.baseAttributes(ex, tc)
	summary["number_of_messages"] = len(messages)
	if ex.StopReason != "" {
		summary["stop_reason"] = ex.StopReason
	}
	b.addUsage(summary, ex)
	addParameters(summary, ex.Params)
	out = append(out, Event{Type: TypeChatSummary, Attributes: summary})

	for i, msg := range messages {
		attrs := b.baseAttributes(ex, tc)
		attrs["role"] = msg.Role
		attrs["content"] = truncate(msg.Content)
		attrs["sequence"] = i
		out = append(out, Event{Type: TypeChatMessage, Attributes: attrs})
	}
	return out
}

// =============================================================================
// SHARED ATTRIBUTES
// =============================================================================

// baseAttributes builds the attributes present on every event kind:
// a fresh event id, the service identity, the correlation identifiers,
// and the model/latency fields.
func (b *Builder) baseAttributes(ex *Exchange, tc *trace.Context) map[string]any {
	attrs := map[string]any{
		"id":              uuid.NewString(),
		"applicationName": b.serviceName,
		"vendor":          "bedrock",
		"timestamp":       time.Now().UnixMilli(),
		"model_id":        ex.ModelID,
		"model":           adapters.NormalizeModelID(ex.ModelID),
		"latency_ms":      ex.Latency.Milliseconds(),
	}
	if tc != nil {
		attrs["trace_id"] = tc.TraceID
		attrs["completion_id"] = tc.CompletionID
		if tc.ConversationID != "" {
			attrs["conversation_id"] = tc.ConversationID
		}
		if tc.UserID != "" {
			attrs["user_id"] = tc.UserID
		}
	}
	return attrs
}

// addUsage writes token counts into attrs. Unknown counts are omitted, not
// zero-filled. When the provider reported nothing and an estimator is
// configured, counts are estimated from the text and flagged as such.
func (b *Builder) addUsage(attrs map[string]any, ex *Exchange) {
	if !b.trackTokenUsage {
		return
	}

	u := ex.Usage
	if !u.Known() && b.tokens != nil {
		u = b.estimateUsage(ex)
		if u.Known() {
			attrs["token_source"] = "estimated"
		}
	}

	if u.InputTokens != nil {
		attrs["input_tokens"] = *u.InputTokens
	}
	if u.OutputTokens != nil {
		attrs["output_tokens"] = *u.OutputTokens
	}
	if u.TotalTokens != nil {
		attrs["total_tokens"] = *u.TotalTokens
	}
}

func (b *Builder) estimateUsage(ex *Exchange) adapters.Usage {
	var u adapters.Usage
	if ex.Prompt.Text != "" {
		if n, err := b.tokens.Count(ex.Prompt.Text); err == nil {
			u.InputTokens = &n
		} else {
			log.Debug().Err(err).Msg("events: token estimation failed")
			return adapters.Usage{}
		}
	}
	if ex.Completion != "" {
		if n, err := b.tokens.Count(ex.Completion); err == nil {
			u.OutputTokens = &n
		}
	}
	if u.InputTokens != nil && u.OutputTokens != nil {
		total := *u.InputTokens + *u.OutputTokens
		u.TotalTokens = &total
	}
	return u
}

// addParameters writes model parameters into attrs, only when the request
// carried them.
func addParameters(attrs map[string]any, p adapters.Parameters) {
	if p.Temperature != nil {
		attrs["temperature"] = *p.Temperature
	}
	if p.TopP != nil {
		attrs["top_p"] = *p.TopP
	}
	if p.MaxTokens != nil {
		attrs["max_tokens"] = *p.MaxTokens
	}
}

// truncate caps s at the attribute length limit, backing off to a rune
// boundary so the cut never leaves a partial UTF-8 sequence.
func truncate(s string) string {
	if len(s) <= maxContentLength {
		return s
	}
	cut := maxContentLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
