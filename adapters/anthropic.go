package adapters

import (
	"encoding/json"

	"github.com/vnfmsqkek3/bedrock-observability-go/internal/jsonx"
)

// AnthropicAdapter handles Anthropic Claude payloads.
// Claude 3 uses the Messages API (messages array in, content blocks out,
// nested usage object); Claude 1/2 use the legacy prompt/completion shape.
// Both generations are recognized.
type AnthropicAdapter struct {
	BaseAdapter
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{BaseAdapter{name: "anthropic"}}
}

// ExtractPrompt extracts the prompt from either shape. Messages-form
// requests yield a message list (system prompt included as a system role),
// legacy requests yield plain text.
func (a *AnthropicAdapter) ExtractPrompt(requestBody []byte) Prompt {
	var req struct {
		Prompt   string            `json:"prompt"`
		System   string            `json:"system"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(requestBody, &req); err != nil {
		return Prompt{}
	}

	if len(req.Messages) == 0 {
		return Prompt{Text: req.Prompt}
	}

	var p Prompt
	if req.System != "" {
		p.Messages = append(p.Messages, Message{Role: "system", Content: req.System})
	}
	for _, raw := range req.Messages {
		var msg struct {
			Role    string      `json:"role"`
			Content interface{} `json:"content"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		content := flattenContent(msg.Content)
		p.Messages = append(p.Messages, Message{Role: msg.Role, Content: content})
		if msg.Role == "user" && content != "" {
			if p.Text != "" {
				p.Text += " "
			}
			p.Text += content
		}
	}
	return p
}

// ExtractCompletion extracts the completion text. Claude 3 responds with a
// content array of typed blocks, Claude 1/2 with a flat completion string.
func (a *AnthropicAdapter) ExtractCompletion(responseBody []byte) string {
	if text, ok := jsonx.BlockText(responseBody, "content"); ok {
		return text
	}
	if text, ok := jsonx.String(responseBody, "completion"); ok {
		return text
	}
	return ""
}

// ExtractUsage extracts token counts. Claude 3 nests them under usage;
// some Bedrock responses surface them at the top level instead.
func (a *AnthropicAdapter) ExtractUsage(responseBody []byte) Usage {
	var u Usage
	if v, ok := jsonx.Int(responseBody, "usage.input_tokens", "input_tokens"); ok {
		u.InputTokens = intp(v)
	}
	if v, ok := jsonx.Int(responseBody, "usage.output_tokens", "output_tokens"); ok {
		u.OutputTokens = intp(v)
	}
	return sumUsage(u)
}

// ExtractStopReason extracts the stop reason.
func (a *AnthropicAdapter) ExtractStopReason(responseBody []byte) string {
	s, _ := jsonx.String(responseBody, "stop_reason")
	return s
}

// ExtractParameters extracts temperature, top_p and the max token limit
// (max_tokens for Claude 3, max_tokens_to_sample for Claude 1/2).
func (a *AnthropicAdapter) ExtractParameters(requestBody []byte) Parameters {
	var p Parameters
	if v, ok := jsonx.Float(requestBody, "temperature"); ok {
		p.Temperature = floatp(v)
	}
	if v, ok := jsonx.Float(requestBody, "top_p"); ok {
		p.TopP = floatp(v)
	}
	if v, ok := jsonx.Int(requestBody, "max_tokens", "max_tokens_to_sample"); ok {
		p.MaxTokens = intp(v)
	}
	return p
}

// ExtractChunkText extracts the text fragment from one stream chunk.
// Claude 3 streams content_block_delta events carrying delta.text;
// Claude 1/2 stream flat completion fragments.
func (a *AnthropicAdapter) ExtractChunkText(chunk []byte) (string, bool) {
	if text, ok := jsonx.String(chunk, "delta.text"); ok {
		return text, true
	}
	if text, ok := jsonx.String(chunk, "completion"); ok {
		return text, true
	}
	// content_block_start carries the opening text of a block
	if text, ok := jsonx.String(chunk, "content_block.text"); ok {
		return text, true
	}
	return "", false
}

// flattenContent joins a message content value into plain text. Content can
// be a string or an array of typed blocks (multimodal requests).
func flattenContent(content interface{}) string {
	switch c := content.(type) {
	case string:
		return c
	case []interface{}:
		var text string
		for _, item := range c {
			block, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if t, ok := block["type"].(string); ok && t != "text" {
				continue
			}
			if s, ok := block["text"].(string); ok {
				text += s
			}
		}
		return text
	}
	return ""
}

// Ensure AnthropicAdapter implements Adapter
var _ Adapter = (*AnthropicAdapter)(nil)
