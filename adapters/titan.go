package adapters

import (
	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// TitanAdapter handles Amazon Titan text and embedding payloads.
// Titan v1 takes inputText and answers with a results array of outputText;
// v2 uses flat input/output fields. Token counts use the flat camelCase
// inputTokenCount/outputTokenCount style, either at the top level or under
// a usage object.
type TitanAdapter struct {
	BaseAdapter
}

// NewTitanAdapter creates a new Titan adapter.
func NewTitanAdapter() *TitanAdapter {
	return &TitanAdapter{BaseAdapter{name: "titan"}}
}

// ExtractPrompt extracts the input text (v1 inputText, v2 input).
func (a *TitanAdapter) ExtractPrompt(requestBody []byte) Prompt {
	text, _ := jsonx.String(requestBody, "inputText", "input")
	return Prompt{Text: text}
}

// ExtractCompletion extracts the completion (v1 results[0].outputText,
// v2 output).
func (a *TitanAdapter) ExtractCompletion(responseBody []byte) string {
	if text, ok := jsonx.String(responseBody, "results.0.outputText"); ok {
		return text
	}
	text, _ := jsonx.String(responseBody, "output", "outputText")
	return text
}

// ExtractUsage extracts the flat camelCase token counts, checking both the
// top level and a nested usage object.
func (a *TitanAdapter) ExtractUsage(responseBody []byte) Usage {
	var u Usage
	if v, ok := jsonx.Int(responseBody, "usage.inputTokenCount", "inputTextTokenCount", "inputTokenCount"); ok {
		u.InputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "usage.outputTokenCount", "outputTokenCount", "results.0.tokenCount"); ok {
		u.OutputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "usage.totalTokenCount", "totalTokenCount"); ok {
		u.TotalTokens = intp(v)
	}
	return sumUsage(u)
}

// ExtractStopReason extracts the completion reason.
func (a *TitanAdapter) ExtractStopReason(responseBody []byte) string {
	s, _ := jsonx.String(responseBody, "results.0.completionReason", "completionReason", "stop_reason")
	return s
}

// ExtractParameters extracts the textGenerationConfig parameters.
func (a *TitanAdapter) ExtractParameters(requestBody []byte) Parameters {
	var p Parameters
	if v, ok := jsonx.Float(requestBody, "textGenerationConfig.temperature", "temperature"); ok {
		p.Temperature = floatp(v)
	}
	if v, ok := jsonx.Float(requestBody, "textGenerationConfig.topP", "topP", "top_p"); ok {
		p.TopP = floatp(v)
	}
	if v, ok := jsonx.Int(requestBody, "textGenerationConfig.maxTokenCount", "maxTokenCount"); ok {
		p.MaxTokens = intp(v)
	}
	return p
}

// ExtractChunkText extracts the fragment from a Titan stream chunk, which
// carries a flat outputText field.
func (a *TitanAdapter) ExtractChunkText(chunk []byte) (string, bool) {
	if text, ok := jsonx.String(chunk, "outputText"); ok {
		return text, true
	}
	return "", false
}

// Ensure TitanAdapter implements Adapter
var _ Adapter = (*TitanAdapter)(nil)
