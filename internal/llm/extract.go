package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedOutput means no parseable JSON object was found in the
// model's output.
var ErrMalformedOutput = errors.New("no JSON object found in model output")

// Boilerplate prefixes models like to emit before the actual object.
// Matched case-insensitively against the start of the trimmed text.
var noisePrefixes = []string{
	"final answer:",
	"here is the json:",
	"here's the json:",
	"answer:",
	"output:",
	"result:",
	"response:",
	"json:",
}

// Extract parses a raw model response into a JSON object, tolerating
// markdown fencing, boilerplate prefixes, and extraneous prose.
//
// Preference order: fenced ```json block, first balanced-brace object
// anywhere in the text, then the whole trimmed text. Failure of an earlier
// tier falls through to the next; Extract fails only if every tier fails.
func Extract(raw string) (map[string]any, error) {
	text := stripNoise(raw)

	if inner := fencedBlock(text); inner != "" {
		if obj := firstObject(inner); obj != "" {
			if m, err := parseObject(obj); err == nil {
				return m, nil
			}
		}
	}

	if obj := firstObject(text); obj != "" {
		if m, err := parseObject(obj); err == nil {
			return m, nil
		}
	}

	if m, err := parseObject(strings.TrimSpace(text)); err == nil {
		return m, nil
	}

	return nil, ErrMalformedOutput
}

// ExtractInto extracts the JSON object and unmarshals it into v.
func ExtractInto(raw string, v any) error {
	m, err := Extract(raw)
	if err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func stripNoise(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		stripped := false
		lower := strings.ToLower(text)
		for _, p := range noisePrefixes {
			if strings.HasPrefix(lower, p) {
				text = strings.TrimSpace(text[len(p):])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return text
}

// fencedBlock returns the content of the first markdown code fence, or "".
func fencedBlock(text string) string {
	lower := strings.ToLower(text)
	start := strings.Index(lower, "```json")
	offset := len("```json")
	if start < 0 {
		start = strings.Index(lower, "```")
		offset = len("```")
	}
	if start < 0 {
		return ""
	}
	rest := text[start+offset:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// firstObject scans for the first balanced-brace object, ignoring braces
// inside JSON string literals.
func firstObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
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
				return text[start : i+1]
			}
		}
	}
	return ""
}

func parseObject(text string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMalformedOutput
	}
	return m, nil
}
