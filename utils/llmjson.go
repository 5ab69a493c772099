package utils

import (
	"regexp"
	"strings"
)

// jsonBlockPattern matches a JSON object inside a markdown code fence:
// ```json { ... } ```
var jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*?\\})\\s*```")

// ExtractJSONObject recovers a JSON object from an LLM response that
// may wrap it in markdown fences or surrounding prose. It returns the
// fenced object if present, otherwise the first top-level balanced
// {...} object, otherwise "".
func ExtractJSONObject(content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}

	if matches := jsonBlockPattern.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}

	return firstBalancedObject(text)
}

// firstBalancedObject scans for the first '{' and returns the substring
// up to its matching '}', tracking string literals and escapes so
// braces inside values do not miscount.
func firstBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
