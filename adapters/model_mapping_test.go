package adapters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vnfmsqkek3/bedrock-observability-go/adapters"
)

func TestNormalizeModelID(t *testing.T) {
	cases := []struct {
		modelID string
		family  string
	}{
		{"anthropic.claude-3-haiku-20240307-v1:0", "anthropic.claude-3-haiku"},
		{"amazon.titan-text-express-v1", "amazon.titan"},
		{"meta.llama3-8b-instruct-v1:0", "meta.llama3"},
		{"anthropic.claude-99-futuristic", "anthropic.unknown"},
		{"vendor-x.model-v2", "vendor-x.unknown"},
		{"no-dot-at-all", "no-dot-at-all"},
		{"", "unknown"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.family, adapters.NormalizeModelID(tc.modelID), "model %s", tc.modelID)
	}
}
