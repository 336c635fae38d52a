package template

import (
	"fmt"
	"strings"
)

// Engine renders placeholder text.
type Engine struct {
	placeholders map[string]Resolver
}

// NewEngine creates an engine with the built-in placeholders.
func NewEngine() *Engine {
	return &Engine{
		placeholders: defaultPlaceholders(),
	}
}

var defaultEngine = NewEngine()

// Render substitutes placeholders using the package default engine.
func Render(text string, vars Vars) string {
	return defaultEngine.Render(text, vars)
}

// Render substitutes every known placeholder in text. Unknown placeholders
// and {{original}} are left intact.
func (e *Engine) Render(text string, vars Vars) string {
	if !strings.ContainsAny(text, "{<") {
		return text
	}

	out := bracePattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if fn, ok := e.placeholders[name]; ok {
			return fn(vars)
		}
		return match
	})

	return anglePattern.ReplaceAllStringFunc(out, func(match string) string {
		name := match[1 : len(match)-1]
		if fn, ok := e.placeholders[name]; ok && angleNames[name] {
			return fn(vars)
		}
		return match
	})
}

// AddPlaceholder registers a custom {{name}} placeholder.
func (e *Engine) AddPlaceholder(name string, fn Resolver) {
	e.placeholders[name] = fn
}

// Known reports whether the engine resolves name.
func (e *Engine) Known(name string) bool {
	if name == PlaceholderOriginal {
		return true
	}
	_, ok := e.placeholders[name]
	return ok
}

// ValidateVariables checks that every placeholder in text is known to the
// default engine. Returns an error wrapping ErrVariable naming the first
// unknown one.
func ValidateVariables(text string) error {
	return defaultEngine.Validate(text)
}

// Validate checks that every placeholder in text is known to e.
func (e *Engine) Validate(text string) error {
	for _, name := range ExtractVariables(text) {
		if !e.Known(name) {
			return fmt.Errorf("%w: %s", ErrVariable, name)
		}
	}
	return nil
}

// ApplyOriginal returns override with every {{original}} replaced by
// original. An empty override yields original unchanged, and so does an
// override that expands to the empty string.
func ApplyOriginal(override, original string) string {
	if override == "" {
		return original
	}
	out := strings.ReplaceAll(override, "{{"+PlaceholderOriginal+"}}", original)
	if out == "" {
		return original
	}
	return out
}
