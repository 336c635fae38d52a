// Package providers registers every built-in model provider.
// Import it to make them available through provider.New and
// provider.FromConfig:
//
//	import _ "github.com/randalmurphal/charkit/providers"
package providers

import (
	_ "github.com/randalmurphal/charkit/openai"
)
