package adapters

import "strings"

// modelFamilies maps concrete Bedrock model ids to canonical family names
// used in event attributes, so dashboards can group versions of one model.
var modelFamilies = map[string]string{
	// Amazon Titan
	"amazon.titan-text-lite-v1":    "amazon.titan",
	"amazon.titan-text-express-v1": "amazon.titan",
	"amazon.titan-text-premier-v1": "amazon.titan",
	"amazon.titan-text-lite-v2:0":  "amazon.titan-v2",
	"amazon.titan-embed-text-v1":   "amazon.titan-embed",
	"amazon.titan-embed-text-v2:0": "amazon.titan-embed-v2",

	// Anthropic Claude
	"anthropic.claude-v1":                       "anthropic.claude",
	"anthropic.claude-v2":                       "anthropic.claude",
	"anthropic.claude-v2:1":                     "anthropic.claude",
	"anthropic.claude-instant-v1":               "anthropic.claude-instant",
	"anthropic.claude-3-sonnet-20240229-v1:0":   "anthropic.claude-3-sonnet",
	"anthropic.claude-3-haiku-20240307-v1:0":    "anthropic.claude-3-haiku",
	"anthropic.claude-3-opus-20240229-v1:0":     "anthropic.claude-3-opus",
	"anthropic.claude-3-5-sonnet-20240620-v1:0": "anthropic.claude-3-5-sonnet",

	// AI21
	"ai21.j2-mid-v1":           "ai21.jurassic-2",
	"ai21.j2-ultra-v1":         "ai21.jurassic-2",
	"ai21.jamba-instruct-v1:0": "ai21.jamba",

	// Cohere
	"cohere.command-text-v14":       "cohere.command",
	"cohere.command-light-text-v14": "cohere.command-light",
	"cohere.command-r-v1:0":         "cohere.command-r",
	"cohere.command-r-plus-v1:0":    "cohere.command-r-plus",
	"cohere.embed-english-v3":       "cohere.embed",

	// Meta
	"meta.llama2-13b-chat-v1":       "meta.llama2",
	"meta.llama2-70b-chat-v1":       "meta.llama2",
	"meta.llama3-8b-instruct-v1:0":  "meta.llama3",
	"meta.llama3-70b-instruct-v1:0": "meta.llama3",

	// Mistral
	"mistral.mistral-7b-instruct-v0:2":   "mistral.mistral",
	"mistral.mixtral-8x7b-instruct-v0:1": "mistral.mixtral",
	"mistral.mistral-large-2402-v1:0":    "mistral.mistral-large",
}

// NormalizeModelID maps a concrete model id to its canonical family name.
// Unmapped ids fall back to "<vendor>.unknown" when the id carries a vendor
// prefix, or the id itself otherwise. Empty ids normalize to "unknown".
func NormalizeModelID(modelID string) string {
	if modelID == "" {
		return "unknown"
	}
	if family, ok := modelFamilies[modelID]; ok {
		return family
	}
	if vendor, _, ok := strings.Cut(modelID, "."); ok {
		return vendor + ".unknown"
	}
	return modelID
}
