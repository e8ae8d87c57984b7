package adapters

import (
	"github.com/tidwall/gjson"

	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// GenericAdapter is the fallback for model families without a dedicated
// adapter. It is a full Adapter in its own right, not a special case: it
// tolerates arbitrary JSON-like payloads and extracts what common-shape
// heuristics allow (a top-level text field, a usage-shaped object with
// input/output counts under varying key names). What it cannot find stays
// unknown; it never errors.
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates the fallback adapter.
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{BaseAdapter{name: "generic"}}
}

// ExtractPrompt probes the common prompt field names, then a messages array.
func (a *GenericAdapter) ExtractPrompt(requestBody []byte) Prompt {
	if text, ok := jsonx.String(requestBody, "prompt", "inputText", "input", "message", "text"); ok {
		return Prompt{Text: text}
	}
	if inputs := gjson.GetBytes(requestBody, "inputs"); inputs.Exists() {
		if inputs.Type == gjson.String {
			return Prompt{Text: inputs.Str}
		}
		if inputs.IsArray() && len(inputs.Array()) > 0 {
			return Prompt{Text: inputs.Array()[0].String()}
		}
	}
	return promptFromSimpleMessages(requestBody)
}

// ExtractCompletion probes the common completion field names, including a
// content array of typed blocks.
func (a *GenericAdapter) ExtractCompletion(responseBody []byte) string {
	if text, ok := jsonx.String(responseBody, "text", "generated_text", "output", "outputText", "completion", "generation"); ok {
		return text
	}
	if text, ok := jsonx.BlockText(responseBody, "content"); ok {
		return text
	}
	text, _ := jsonx.String(responseBody, "results.0.outputText", "generations.0.text", "outputs.0.text")
	return text
}

// ExtractUsage probes a usage-shaped object under varying key names,
// covering the nested snake_case style, the flat camelCase style, the
// OpenAI-compatible style and abbreviated in/out keys.
func (a *GenericAdapter) ExtractUsage(responseBody []byte) Usage {
	var u Usage
	if v, ok := jsonx.Int(responseBody,
		"usage.input_tokens", "usage.inputTokenCount", "usage.prompt_tokens", "usage.in",
		"input_tokens", "inputTokenCount", "prompt_tokens"); ok {
		u.InputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody,
		"usage.output_tokens", "usage.outputTokenCount", "usage.completion_tokens", "usage.out",
		"output_tokens", "outputTokenCount", "completion_tokens"); ok {
		u.OutputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody,
		"usage.total_tokens", "usage.totalTokenCount", "total_tokens", "totalTokenCount"); ok {
		u.TotalTokens = intp(v)
	}
	return sumUsage(u)
}

// ExtractStopReason probes the common stop reason field names.
func (a *GenericAdapter) ExtractStopReason(responseBody []byte) string {
	s, _ := jsonx.String(responseBody, "finish_reason", "stop_reason", "completionReason", "stopReason")
	return s
}

// ExtractParameters probes the common parameter names, including a nested
// params object.
func (a *GenericAdapter) ExtractParameters(requestBody []byte) Parameters {
	var p Parameters
	if v, ok := jsonx.Float(requestBody, "temperature", "params.temperature"); ok {
		p.Temperature = floatp(v)
	}
	if v, ok := jsonx.Float(requestBody, "top_p", "topP", "p", "params.top_p", "params.topP"); ok {
		p.TopP = floatp(v)
	}
	if v, ok := jsonx.Int(requestBody, "max_tokens", "maxTokens", "max_tokens_to_sample", "maxTokenCount"); ok {
		p.MaxTokens = intp(v)
	}
	return p
}

// ExtractChunkText recognizes the common incremental chunk shapes:
// delta.text, a flat completion or outputText string, a bare text field,
// and a content array of typed blocks.
func (a *GenericAdapter) ExtractChunkText(chunk []byte) (string, bool) {
	if text, ok := jsonx.String(chunk, "delta.text", "completion", "outputText", "text", "generation"); ok {
		return text, true
	}
	if text, ok := jsonx.BlockText(chunk, "content"); ok {
		return text, true
	}
	return "", false
}

// Ensure GenericAdapter implements Adapter
var _ Adapter = (*GenericAdapter)(nil)
