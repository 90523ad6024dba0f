// Package jsonx recovers JSON objects from noisy model output. Model
// responses usually wrap a valid JSON object in prose or Markdown fences;
// occasionally the object itself is slightly malformed. The extractor strips
// the surroundings and applies a bounded set of conservative repairs, never
// attempting a general fix-up that could mangle legitimate string content.
package jsonx

import (
	"encoding/json"
	"strings"

	"github.com/bobmcallan/marketbrief/internal/faults"
)

// ExtractObject extracts and parses the first JSON object embedded in raw.
// Returns ok=false when no parseable object is found.
func ExtractObject(raw string) (map[string]any, bool) {
	candidate, ok := locateObject(raw)
	if !ok {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}

	// One repair pass: trailing commas and bare newlines are the two
	// low-risk error classes models actually produce.
	repaired := escapeBareNewlines(removeTrailingCommas(candidate))
	if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
		return obj, true
	}

	return nil, false
}

// ParseOrFail is the strict entrypoint: it fails with a MalformedResponse
// error carrying a bounded snippet of the offending text.
func ParseOrFail(raw string) (map[string]any, error) {
	obj, ok := ExtractObject(raw)
	if !ok {
		return nil, faults.New(faults.MalformedResponse, "no parseable JSON object in model output").WithSnippet(raw)
	}
	return obj, nil
}

// locateObject trims a surrounding Markdown fence and returns the substring
// spanning the first '{' to the last '}'. Fences are trimmed only at the
// boundaries: fence markers inside string values are legitimate content
// (markdown sections routinely embed code blocks) and must survive
// extraction intact.
func locateObject(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
		cleaned = strings.TrimSuffix(cleaned, "```")
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}

// removeTrailingCommas drops a comma that is followed only by whitespace and
// a closing brace or bracket. String content is left untouched.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the comma
			}
		}

		b.WriteByte(c)
	}
	return b.String()
}

// escapeBareNewlines escapes raw newline, carriage-return, and tab characters
// occurring inside string literals. A backslash immediately followed by a raw
// newline is treated as an already-escaped sequence and left as-is, so that
// legitimate backslash sequences are never rewritten; such input stays
// unparseable and surfaces as MalformedResponse.
func escapeBareNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}

		switch c {
		case '\\':
			escaped = true
			b.WriteByte(c)
		case '"':
			inString = false
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
