package parser

import (
	"regexp"
	"strings"
	"sync"
)

// Marker is an XML-style tag found in a reply.
type Marker struct {
	// Tag is the marker name, e.g. "emotion".
	Tag string

	// Value is the trimmed text between the tags.
	Value string

	// Raw is the full matched text including tags.
	Raw string
}

// MarkerMatcher finds <tag>value</tag> markers. Patterns are compiled once
// per tag.
type MarkerMatcher struct {
	mu       sync.RWMutex
	tags     []string
	patterns map[string]*regexp.Regexp
}

// NewMarkerMatcher creates a matcher for the given tag names, given without
// angle brackets.
func NewMarkerMatcher(tags ...string) *MarkerMatcher {
	m := &MarkerMatcher{patterns: make(map[string]*regexp.Regexp, len(tags))}
	for _, tag := range tags {
		m.AddTag(tag)
	}
	return m
}

// AddTag registers another tag. It is safe for concurrent use.
func (m *MarkerMatcher) AddTag(tag string) {
	q := regexp.QuoteMeta(tag)
	pattern := regexp.MustCompile(`(?s)<` + q + `>(.*?)</` + q + `>`)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patterns[tag]; ok {
		return
	}
	m.tags = append(m.tags, tag)
	m.patterns[tag] = pattern
}

// Tags returns the registered tags in registration order.
func (m *MarkerMatcher) Tags() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.tags...)
}

func (m *MarkerMatcher) pattern(tag string) *regexp.Regexp {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.patterns[tag]
}

// FindAll returns every marker for tag in order of appearance.
func (m *MarkerMatcher) FindAll(content, tag string) []Marker {
	p := m.pattern(tag)
	if p == nil {
		return nil
	}
	var markers []Marker
	for _, match := range p.FindAllStringSubmatch(content, -1) {
		markers = append(markers, Marker{Tag: tag, Value: strings.TrimSpace(match[1]), Raw: match[0]})
	}
	return markers
}

// FindLast returns the last marker for tag.
func (m *MarkerMatcher) FindLast(content, tag string) (Marker, bool) {
	all := m.FindAll(content, tag)
	if len(all) == 0 {
		return Marker{}, false
	}
	return all[len(all)-1], true
}

// Contains reports whether content has a marker for tag.
func (m *MarkerMatcher) Contains(content, tag string) bool {
	p := m.pattern(tag)
	return p != nil && p.MatchString(content)
}

// Strip removes every registered marker from content and trims the result.
func (m *MarkerMatcher) Strip(content string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tag := range m.tags {
		content = m.patterns[tag].ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

// TagEmotion is the inline emotion directive tag.
const TagEmotion = "emotion"

// DirectiveMarkers matches the inline directives a reply may carry.
var DirectiveMarkers = NewMarkerMatcher(TagEmotion)

// ExtractEmotion removes inline emotion directives from text and returns the
// last directive's label.
func ExtractEmotion(text string) (string, string, bool) {
	mk, ok := DirectiveMarkers.FindLast(text, TagEmotion)
	if !ok {
		return text, "", false
	}
	return DirectiveMarkers.Strip(text), mk.Value, true
}
