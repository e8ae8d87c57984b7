package adapters

import (
	"encoding/json"

	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// AI21Adapter handles AI21 payloads. Jurassic 2 answers with
// completions[0].data.text; Jamba uses the messages/text chat shape.
type AI21Adapter struct {
	BaseAdapter
}

// NewAI21Adapter creates a new AI21 adapter.
func NewAI21Adapter() *AI21Adapter {
	return &AI21Adapter{BaseAdapter{name: "ai21"}}
}

// ExtractPrompt extracts the prompt (Jurassic) or user messages (Jamba).
func (a *AI21Adapter) ExtractPrompt(requestBody []byte) Prompt {
	if text, ok := jsonx.String(requestBody, "prompt"); ok {
		return Prompt{Text: text}
	}
	return promptFromSimpleMessages(requestBody)
}

// ExtractCompletion extracts completions[0].data.text (Jurassic) or the
// flat text field (Jamba).
func (a *AI21Adapter) ExtractCompletion(responseBody []byte) string {
	if text, ok := jsonx.String(responseBody, "completions.0.data.text"); ok {
		return text
	}
	text, _ := jsonx.String(responseBody, "text", "choices.0.message.content")
	return text
}

// ExtractUsage extracts token counts from either usage style.
func (a *AI21Adapter) ExtractUsage(responseBody []byte) Usage {
	var u Usage
	if v, ok := jsonx.Int(responseBody, "usage.prompt_tokens", "usage.inputTokenCount"); ok {
		u.InputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "usage.completion_tokens", "usage.outputTokenCount"); ok {
		u.OutputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "usage.total_tokens"); ok {
		u.TotalTokens = intp(v)
	}
	return sumUsage(u)
}

// ExtractStopReason extracts the finish reason.
func (a *AI21Adapter) ExtractStopReason(responseBody []byte) string {
	s, _ := jsonx.String(responseBody, "completions.0.finishReason.reason", "choices.0.finish_reason", "finish_reason")
	return s
}

// ExtractParameters extracts temperature, topP and maxTokens.
func (a *AI21Adapter) ExtractParameters(requestBody []byte) Parameters {
	var p Parameters
	if v, ok := jsonx.Float(requestBody, "temperature"); ok {
		p.Temperature = floatp(v)
	}
	if v, ok := jsonx.Float(requestBody, "topP", "top_p"); ok {
		p.TopP = floatp(v)
	}
	if v, ok := jsonx.Int(requestBody, "maxTokens", "max_tokens"); ok {
		p.MaxTokens = intp(v)
	}
	return p
}

// ExtractChunkText extracts the fragment from an AI21 stream chunk.
func (a *AI21Adapter) ExtractChunkText(chunk []byte) (string, bool) {
	if text, ok := jsonx.String(chunk, "choices.0.delta.content", "text"); ok {
		return text, true
	}
	return "", false
}

// promptFromSimpleMessages parses a messages array where content is always a
// plain string (Jamba, Llama 3, Mistral chat shapes).
func promptFromSimpleMessages(requestBody []byte) Prompt {
	var req struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(requestBody, &req); err != nil || len(req.Messages) == 0 {
		return Prompt{}
	}

	p := Prompt{Messages: req.Messages}
	for _, msg := range req.Messages {
		if msg.Role != "user" || msg.Content == "" {
			continue
		}
		if p.Text != "" {
			p.Text += " "
		}
		p.Text += msg.Content
	}
	return p
}

// Ensure AI21Adapter implements Adapter
var _ Adapter = (*AI21Adapter)(nil)
