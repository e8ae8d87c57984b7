// Registry resolves a model identifier to its normalization adapter.
//
// DESIGN: Adapters are registered under vendor/family prefixes
// ("anthropic.", "amazon.titan", ...). Resolve picks the longest matching
// prefix; when nothing matches it returns the generic fallback, which
// extracts what common-shape heuristics allow. Resolution is deterministic,
// side-effect free and never fails.
//
// The registry is populated at construction and read-only afterwards, so
// concurrent reads need no synchronization.
package adapters

import "strings"

// Registry maps model-id prefixes to adapters.
type Registry struct {
	entries  []registryEntry
	fallback Adapter
}

type registryEntry struct {
	prefix  string
	adapter Adapter
}

// NewRegistry creates a registry with all built-in adapters registered.
func NewRegistry() *Registry {
	r := &Registry{fallback: NewGenericAdapter()}

	anthropic := NewAnthropicAdapter()
	r.Register("anthropic.", anthropic)
	r.Register("us.anthropic.", anthropic)

	titan := NewTitanAdapter()
	r.Register("amazon.titan", titan)

	r.Register("cohere.", NewCohereAdapter())
	r.Register("ai21.", NewAI21Adapter())
	r.Register("meta.llama", NewMetaAdapter())
	r.Register("mistral.", NewMistralAdapter())

	return r
}

// Register adds an adapter under a model-id prefix. Matching is
// case-insensitive. Intended for construction time only; the registry is
// not safe for registration concurrent with Resolve.
func (r *Registry) Register(prefix string, adapter Adapter) {
	r.entries = append(r.entries, registryEntry{
		prefix:  strings.ToLower(prefix),
		adapter: adapter,
	})
}

// Resolve returns the adapter whose prefix is the longest match for the
// model id. Exactly one adapter resolves per id; the generic fallback is
// returned when no registered prefix matches.
func (r *Registry) Resolve(modelID string) Adapter {
	id := strings.ToLower(modelID)

	var best Adapter
	bestLen := -1
	for _, e := range r.entries {
		if strings.HasPrefix(id, e.prefix) && len(e.prefix) > bestLen {
			best = e.adapter
			bestLen = len(e.prefix)
		}
	}
	if best == nil {
		return r.fallback
	}
	return best
}

// Fallback returns the generic adapter used when no prefix matches.
func (r *Registry) Fallback() Adapter {
	return r.fallback
}
