package gateway

import (
	"encoding/json"
	"strings"
)

// CoerceJSON recovers a JSON object from a model reply. Models wrap replies
// in fenced code blocks, prepend prose, or append sign-offs; the coercion
// ladder is: strip fences, direct parse, then the widest {...} or [...]
// substring. A top-level array is accepted and wrapped under "items". On
// total failure ok is false and the caller keeps the raw text for
// diagnostics.
func CoerceJSON(raw string) (map[string]any, bool) {
	text := stripFences(strings.TrimSpace(raw))

	if obj, ok := tryParse(text); ok {
		return obj, true
	}

	if sub, ok := widestSpan(text, '{', '}'); ok {
		if obj, ok := tryParse(sub); ok {
			return obj, true
		}
	}
	if sub, ok := widestSpan(text, '[', ']'); ok {
		var arr []any
		if err := json.Unmarshal([]byte(sub), &arr); err == nil {
			return map[string]any{"items": arr}, true
		}
	}
	return nil, false
}

func tryParse(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stripFences removes a surrounding ``` or ```json fence if present.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	// Drop an optional language tag on the fence line.
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		first := strings.TrimSpace(body[:idx])
		if first == "" || isLangTag(first) {
			body = body[idx+1:]
		}
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func isLangTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// widestSpan returns the substring from the first open to the last close
// delimiter, inclusive.
func widestSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
