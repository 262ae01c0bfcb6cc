package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Output is the result of pulling structured data out of a model response.
// Structured and Unparsed are the only implementations.
type Output interface {
	// Map returns the structured fields, or {"raw": text} when nothing
	// could be parsed.
	Map() map[string]any
	isOutput()
}

type Structured struct {
	Fields map[string]any
}

type Unparsed struct {
	Raw string
}

func (s Structured) Map() map[string]any { return s.Fields }
func (u Unparsed) Map() map[string]any   { return map[string]any{"raw": u.Raw} }

func (Structured) isOutput() {}
func (Unparsed) isOutput()   {}

var objectSpan = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractStructured parses a model response that should contain a JSON
// object. It accepts the object alone, a JSON string holding the object,
// or the object embedded in prose. It never fails.
func ExtractStructured(text string) Output {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), `\_`, "_")

	if m, ok := decodeObject(cleaned); ok {
		return Structured{Fields: m}
	}
	if span := objectSpan.FindString(cleaned); span != "" {
		if m, ok := decodeObject(span); ok {
			return Structured{Fields: m}
		}
	}
	return Unparsed{Raw: text}
}

// decodeObject decodes s into an object, unwrapping one level of JSON
// string encoding.
func decodeObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if inner, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(inner), &v); err != nil {
			return nil, false
		}
	}
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

var firstNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// FirstNumber returns the first decimal number in text, or 0 if there is none.
func FirstNumber(text string) float64 {
	s := firstNumber.FindString(text)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
