package template

import "regexp"

var (
	bracePattern = regexp.MustCompile(`\{\{([a-zA-Z_]\w*)\}\}`)
	anglePattern = regexp.MustCompile(`<(char|user)>`)
)

// ExtractVariables returns the placeholder names used in text, in order of
// first appearance and deduplicated. Both spellings count.
func ExtractVariables(text string) []string {
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, m := range bracePattern.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{pos: m[0], name: text[m[2]:m[3]]})
	}
	for _, m := range anglePattern.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{pos: m[0], name: text[m[2]:m[3]]})
	}

	// insertion sort, hit lists are tiny
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	seen := make(map[string]bool)
	var result []string
	for _, h := range hits {
		if !seen[h.name] {
			seen[h.name] = true
			result = append(result, h.name)
		}
	}
	return result
}
