// Package jsonx provides shared gjson probing helpers for provider payloads.
//
// Provider response bodies are partially undocumented and vary by model
// family, so the adapters probe them path-by-path instead of unmarshalling
// into fixed structs. Absence of a path is never an error here; callers treat
// missing values as unknown.
package jsonx

import "github.com/tidwall/gjson"

// Int returns the first integer found at any of the given paths.
// ok is false when none of the paths resolve to a number.
func Int(body []byte, paths ...string) (int, bool) {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Exists() && (v.Type == gjson.Number) {
			return int(v.Int()), true
		}
	}
	return 0, false
}

// Float returns the first float found at any of the given paths.
func Float(body []byte, paths ...string) (float64, bool) {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Exists() && v.Type == gjson.Number {
			return v.Float(), true
		}
	}
	return 0, false
}

// String returns the first non-empty string found at any of the given paths.
func String(body []byte, paths ...string) (string, bool) {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.Str != "" {
			return v.Str, true
		}
	}
	return "", false
}

// BlockText concatenates the "text" fields of a content-array-of-typed-blocks
// value at path (Anthropic Messages style: [{"type":"text","text":"..."}]).
// Returns false when the path is not an array or yields no text.
func BlockText(body []byte, path string) (string, bool) {
	arr := gjson.GetBytes(body, path)
	if !arr.IsArray() {
		return "", false
	}
	var out string
	arr.ForEach(func(_, block gjson.Result) bool {
		if t := block.Get("type"); t.Exists() && t.Str != "text" {
			return true
		}
		out += block.Get("text").Str
		return true
	})
	return out, out != ""
}

// Valid reports whether the payload parses as JSON at all.
func Valid(body []byte) bool {
	return gjson.ValidBytes(body)
}
