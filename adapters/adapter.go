// Package adapters normalizes provider-specific model payloads.
//
// DESIGN: Every supported model family (Anthropic Claude, Amazon Titan,
// Cohere, AI21, Meta Llama, Mistral) has its own request/response schema.
// Each adapter knows how to pull the normalized pieces out of its family's
// raw JSON bodies:
//
//   - ExtractPrompt:     prompt text or message list from the request
//   - ExtractCompletion: completion text from a buffered response
//   - ExtractUsage:      token counts, reconciled across usage schemas
//   - ExtractStopReason: finish/stop reason
//   - ExtractParameters: temperature, top_p, max tokens from the request
//   - ExtractChunkText:  incremental text fragment from one stream chunk
//
// FLOW:
//  1. The interceptor resolves an adapter from the Registry by model id
//  2. The adapter extracts normalized fields from request and response
//  3. The event builder turns the normalized exchange into telemetry events
//
// Adapters are stateless and safe for concurrent use. Absent data is
// reported as unknown (nil pointers / empty strings), never as an error.
package adapters

// Usage holds normalized token counts. A nil field means the provider did
// not report that count; unknown is distinct from zero.
type Usage struct {
	InputTokens  *int
	OutputTokens *int
	TotalTokens  *int
}

// Known reports whether any token count was extracted.
func (u Usage) Known() bool {
	return u.InputTokens != nil || u.OutputTokens != nil || u.TotalTokens != nil
}

// Parameters holds optional model invocation parameters from the request.
type Parameters struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Message is one turn of a conversational exchange.
type Message struct {
	Role    string
	Content string
}

// Prompt is the normalized request input: plain text for single-shot
// completions, a message list for conversational flows. Both may be set.
type Prompt struct {
	Text     string
	Messages []Message
}

// Adapter defines the unified extraction interface for one model family.
type Adapter interface {
	// Name returns the adapter identifier (e.g. "anthropic", "titan").
	Name() string

	// ExtractPrompt extracts the prompt text or message list from the
	// raw request body.
	ExtractPrompt(requestBody []byte) Prompt

	// ExtractCompletion extracts the completion text from a buffered
	// response body.
	ExtractCompletion(responseBody []byte) string

	// ExtractUsage extracts token usage from the response body.
	// Recognizes both the nested usage.input_tokens/output_tokens style
	// and the flat inputTokenCount/outputTokenCount style and reconciles
	// them into one normalized shape. Missing totals are summed when both
	// sides are known.
	ExtractUsage(responseBody []byte) Usage

	// ExtractStopReason extracts the finish/stop reason, or "" if absent.
	ExtractStopReason(responseBody []byte) string

	// ExtractParameters extracts temperature, top_p and max tokens from
	// the request body.
	ExtractParameters(requestBody []byte) Parameters

	// ExtractChunkText extracts the incremental text fragment from one
	// raw stream chunk. ok is false when the chunk carries no text for
	// this family's chunk shapes (metadata frames, ping events, ...).
	ExtractChunkText(chunk []byte) (text string, ok bool)
}

// BaseAdapter provides the common name handling for all adapters.
type BaseAdapter struct {
	name string
}

// Name returns the adapter name.
func (a *BaseAdapter) Name() string {
	return a.name
}

// intp, floatp: pointer helpers for optional extraction results.
func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

// sumUsage fills TotalTokens from the two sides when the provider omitted it.
func sumUsage(u Usage) Usage {
	if u.TotalTokens == nil && u.InputTokens != nil && u.OutputTokens != nil {
		u.TotalTokens = intp(*u.InputTokens + *u.OutputTokens)
	}
	return u
}
