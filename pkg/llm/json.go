package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of free-form model text. Models wrap
// output in markdown fences or prepend prose more often than not, so this
// strips ```json fences first, then scans for the first balanced top-level
// object.
func ExtractJSON(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	text = stripCodeFences(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, true
	}

	candidate, ok := firstBalancedObject(text)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// firstBalancedObject returns the first {...} span with balanced braces,
// respecting string literals and escapes.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
