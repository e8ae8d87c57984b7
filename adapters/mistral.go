package adapters

import (
	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// MistralAdapter handles Mistral payloads: prompt or messages in,
// outputs[0].text out, flat snake_case token counts.
type MistralAdapter struct {
	BaseAdapter
}

// NewMistralAdapter creates a new Mistral adapter.
func NewMistralAdapter() *MistralAdapter {
	return &MistralAdapter{BaseAdapter{name: "mistral"}}
}

// ExtractPrompt extracts the prompt or the user messages.
func (a *MistralAdapter) ExtractPrompt(requestBody []byte) Prompt {
	if text, ok := jsonx.String(requestBody, "prompt"); ok {
		return Prompt{Text: text}
	}
	return promptFromSimpleMessages(requestBody)
}

// ExtractCompletion extracts outputs[0].text, falling back to a flat text
// field on newer models.
func (a *MistralAdapter) ExtractCompletion(responseBody []byte) string {
	if text, ok := jsonx.String(responseBody, "outputs.0.text"); ok {
		return text
	}
	text, _ := jsonx.String(responseBody, "text", "choices.0.message.content")
	return text
}

// ExtractUsage extracts the flat snake_case token counts.
func (a *MistralAdapter) ExtractUsage(responseBody []byte) Usage {
	var u Usage
	if v, ok := jsonx.Int(responseBody, "input_token_count", "usage.prompt_tokens"); ok {
		u.InputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "output_token_count", "usage.completion_tokens"); ok {
		u.OutputTokens = intp(v)
	}
	return sumUsage(u)
}

// ExtractStopReason extracts the stop reason.
func (a *MistralAdapter) ExtractStopReason(responseBody []byte) string {
	s, _ := jsonx.String(responseBody, "outputs.0.stop_reason", "stop_reason", "choices.0.finish_reason")
	return s
}

// ExtractParameters extracts temperature, top_p and max_tokens.
func (a *MistralAdapter) ExtractParameters(requestBody []byte) Parameters {
	var p Parameters
	if v, ok := jsonx.Float(requestBody, "temperature"); ok {
		p.Temperature = floatp(v)
	}
	if v, ok := jsonx.Float(requestBody, "top_p"); ok {
		p.TopP = floatp(v)
	}
	if v, ok := jsonx.Int(requestBody, "max_tokens"); ok {
		p.MaxTokens = intp(v)
	}
	return p
}

// ExtractChunkText extracts the fragment from a Mistral stream chunk.
func (a *MistralAdapter) ExtractChunkText(chunk []byte) (string, bool) {
	if text, ok := jsonx.String(chunk, "outputs.0.text", "choices.0.delta.content"); ok {
		return text, true
	}
	return "", false
}

// Ensure MistralAdapter implements Adapter
var _ Adapter = (*MistralAdapter)(nil)
