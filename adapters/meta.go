package adapters

import (
	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// MetaAdapter handles Meta Llama payloads. Llama 2 and 3 both answer with a
// flat generation field; Llama 3 chat requests carry a messages array while
// Llama 2 uses a raw prompt. Token counts are flat snake_case fields.
type MetaAdapter struct {
	BaseAdapter
}

// NewMetaAdapter creates a new Meta adapter.
func NewMetaAdapter() *MetaAdapter {
	return &MetaAdapter{BaseAdapter{name: "meta"}}
}

// ExtractPrompt extracts the prompt or the user messages.
func (a *MetaAdapter) ExtractPrompt(requestBody []byte) Prompt {
	if text, ok := jsonx.String(requestBody, "prompt"); ok {
		return Prompt{Text: text}
	}
	return promptFromSimpleMessages(requestBody)
}

// ExtractCompletion extracts the generation text.
func (a *MetaAdapter) ExtractCompletion(responseBody []byte) string {
	text, _ := jsonx.String(responseBody, "generation")
	return text
}

// ExtractUsage extracts the flat snake_case token counts.
func (a *MetaAdapter) ExtractUsage(responseBody []byte) Usage {
	var u Usage
	if v, ok := jsonx.Int(responseBody, "prompt_token_count", "usage.input_tokens"); ok {
		u.InputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "generation_token_count", "usage.output_tokens"); ok {
		u.OutputTokens = intp(v)
	}
	return sumUsage(u)
}

// ExtractStopReason extracts the stop reason.
func (a *MetaAdapter) ExtractStopReason(responseBody []byte) string {
	s, _ := jsonx.String(responseBody, "stop_reason")
	return s
}

// ExtractParameters extracts temperature, top_p and max_gen_len.
func (a *MetaAdapter) ExtractParameters(requestBody []byte) Parameters {
	var p Parameters
	if v, ok := jsonx.Float(requestBody, "temperature"); ok {
		p.Temperature = floatp(v)
	}
	if v, ok := jsonx.Float(requestBody, "top_p"); ok {
		p.TopP = floatp(v)
	}
	if v, ok := jsonx.Int(requestBody, "max_gen_len"); ok {
		p.MaxTokens = intp(v)
	}
	return p
}

// ExtractChunkText extracts the fragment from a Llama stream chunk, which
// carries a flat generation field.
func (a *MetaAdapter) ExtractChunkText(chunk []byte) (string, bool) {
	if text, ok := jsonx.String(chunk, "generation"); ok {
		return text, true
	}
	return "", false
}

// Ensure MetaAdapter implements Adapter
var _ Adapter = (*MetaAdapter)(nil)
