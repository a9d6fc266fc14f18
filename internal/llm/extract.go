package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

const excerptLen = 200

var fencePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_-]*)[ \\t]*\\r?\\n?(.*?)```")

// ExtractJSON pulls a JSON object out of free-form model output.
//
// Fenced blocks win over brace slicing. The extracted text is sanitized before
// parsing; a payload that still does not parse is reported, never defaulted.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	var (
		candidate string
		ok        bool
	)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		// bare object; its string values may themselves contain fences
		candidate, ok = trimmed, true
	} else {
		candidate, ok = fencedObject(text)
	}
	if !ok {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, &models.NoJSONFoundError{Excerpt: models.Excerpt(text, excerptLen)}
		}
		candidate = text[start : end+1]
	}

	cleaned := sanitizeJSON(candidate)
	if !json.Valid([]byte(cleaned)) {
		var probe any
		err := json.Unmarshal([]byte(cleaned), &probe)
		return nil, &models.JSONParseError{Excerpt: models.Excerpt(candidate, excerptLen), Err: err}
	}
	return json.RawMessage(cleaned), nil
}

// fencedObject returns the body of the first fenced block holding an object.
func fencedObject(text string) (string, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		lang := strings.ToLower(m[1])
		body := strings.TrimSpace(m[2])
		if lang != "" && lang != "json" {
			continue
		}
		if strings.HasPrefix(body, "{") && strings.HasSuffix(body, "}") {
			return body, true
		}
	}
	return "", false
}

// sanitizeJSON repairs the control-character and backslash mistakes models make.
// Valid JSON passes through with identical meaning.
func sanitizeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			switch c {
			case '"':
				inString = true
				b.WriteByte(c)
			case '\n', '\r', '\t':
				b.WriteByte(' ')
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = false
			b.WriteByte(c)
		case '\\':
			if i+1 >= len(s) {
				b.WriteString(`\\`)
				continue
			}
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				b.WriteByte(c)
				b.WriteByte(next)
				i++
			case 'u':
				if i+5 < len(s) && isHex(s[i+2:i+6]) {
					b.WriteString(s[i : i+6])
					i += 5
				} else {
					b.WriteString(`\\`)
				}
			case '\'':
				b.WriteByte('\'')
				i++
			default:
				b.WriteString(`\\`)
			}
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				const hex = "0123456789abcdef"
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
