package parser

import (
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// NeutralLabel is the fallback emotion label.
const NeutralLabel = "neutral"

// StripNameEcho trims text and removes a leading "name:", which models often
// prepend to their reply. An empty name only trims.
func StripNameEcho(text, name string) string {
	text = strings.TrimSpace(text)
	if name == "" {
		return text
	}
	text = strings.TrimPrefix(text, name+":")
	return strings.TrimSpace(text)
}

// NormalizeLabel removes spaces and newlines and lowercases s.
func NormalizeLabel(s string) string {
	s = strings.NewReplacer(" ", "", "\n", "").Replace(s)
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchLabel returns the index of the label selected by a classifier output.
// The normalized output is compared against each label exactly, then checked
// for containing a label, and finally falls back to a "neutral" label if
// the list has one. Returns -1 when nothing matches.
func MatchLabel(output string, labels []string) int {
	out := NormalizeLabel(output)
	for i, l := range labels {
		if l == out {
			return i
		}
	}
	for i, l := range labels {
		if l != "" && strings.Contains(out, l) {
			return i
		}
	}
	for i, l := range labels {
		if l == NeutralLabel {
			return i
		}
	}
	return -1
}

// structuredKeys are the field names checked by StructuredLabel.
var structuredKeys = []string{"emotion", "label", "word"}

// StructuredLabel reads a label from a JSON or YAML classifier reply such as
// {"emotion": "happy"} or "emotion: happy". Fenced code blocks are unwrapped
// first. Plain-word replies return false.
func StructuredLabel(output string) (string, bool) {
	body := unfence(strings.TrimSpace(output))

	if gjson.Valid(body) {
		res := gjson.Parse(body)
		for _, k := range structuredKeys {
			if v := res.Get(k); v.Type == gjson.String && v.Str != "" {
				return v.Str, true
			}
		}
		return "", false
	}

	if !strings.Contains(body, ":") {
		return "", false
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return "", false
	}
	for _, k := range structuredKeys {
		if v, ok := doc[k].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
