package adapters

import (
	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// CohereAdapter handles Cohere Command payloads. Classic Command models use
// prompt/generations, Command R uses message/text with a chat_history array.
type CohereAdapter struct {
	BaseAdapter
}

// NewCohereAdapter creates a new Cohere adapter.
func NewCohereAdapter() *CohereAdapter {
	return &CohereAdapter{BaseAdapter{name: "cohere"}}
}

// ExtractPrompt extracts the prompt (classic) or message (Command R).
func (a *CohereAdapter) ExtractPrompt(requestBody []byte) Prompt {
	text, _ := jsonx.String(requestBody, "prompt", "message")
	return Prompt{Text: text}
}

// ExtractCompletion extracts generations[0].text (classic) or text
// (Command R).
func (a *CohereAdapter) ExtractCompletion(responseBody []byte) string {
	if text, ok := jsonx.String(responseBody, "generations.0.text"); ok {
		return text
	}
	text, _ := jsonx.String(responseBody, "text")
	return text
}

// ExtractUsage extracts token counts. Cohere on Bedrock reports the flat
// camelCase style under usage when it reports at all.
func (a *CohereAdapter) ExtractUsage(responseBody []byte) Usage {
	var u Usage
	if v, ok := jsonx.Int(responseBody, "usage.inputTokenCount", "usage.input_tokens", "meta.billed_units.input_tokens"); ok {
		u.InputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "usage.outputTokenCount", "usage.output_tokens", "meta.billed_units.output_tokens"); ok {
		u.OutputTokens = intp(v)
	}
	return sumUsage(u)
}

// ExtractStopReason extracts the finish reason.
func (a *CohereAdapter) ExtractStopReason(responseBody []byte) string {
	s, _ := jsonx.String(responseBody, "generations.0.finish_reason", "finish_reason")
	return s
}

// ExtractParameters extracts temperature and p (Cohere's name for top_p).
func (a *CohereAdapter) ExtractParameters(requestBody []byte) Parameters {
	var p Parameters
	if v, ok := jsonx.Float(requestBody, "temperature"); ok {
		p.Temperature = floatp(v)
	}
	if v, ok := jsonx.Float(requestBody, "p", "top_p"); ok {
		p.TopP = floatp(v)
	}
	if v, ok := jsonx.Int(requestBody, "max_tokens"); ok {
		p.MaxTokens = intp(v)
	}
	return p
}

// ExtractChunkText extracts the fragment from a Cohere stream chunk
// (flat text, or generations[0].text on classic models).
func (a *CohereAdapter) ExtractChunkText(chunk []byte) (string, bool) {
	if text, ok := jsonx.String(chunk, "text"); ok {
		return text, true
	}
	if text, ok := jsonx.String(chunk, "generations.0.text"); ok {
		return text, true
	}
	return "", false
}

// Ensure CohereAdapter implements Adapter
var _ Adapter = (*CohereAdapter)(nil)
