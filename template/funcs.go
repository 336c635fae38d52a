package template

// Vars carries the values placeholders resolve to.
type Vars struct {
	Char string
	User string
}

// Resolver produces the replacement for one placeholder.
type Resolver func(Vars) string

// PlaceholderOriginal is left intact by Render and consumed by ApplyOriginal.
const PlaceholderOriginal = "original"

// defaultPlaceholders returns the built-in placeholder resolvers.
func defaultPlaceholders() map[string]Resolver {
	char := func(v Vars) string { return v.Char }
	user := func(v Vars) string { return v.User }
	return map[string]Resolver{
		"char":      char,
		"char_name": char,
		"bot":       char,
		"user":      user,
	}
}

// angleNames are the placeholders that also have a <name> spelling.
var angleNames = map[string]bool{
	"char": true,
	"user": true,
}
