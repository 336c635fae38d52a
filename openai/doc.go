// Package openai implements provider.Client for OpenAI-compatible chat
// completion endpoints.
//
// Importing the package registers the "openai" provider:
//
//	import _ "github.com/randalmurphal/charkit/openai"
//
//	client, err := provider.New("openai", provider.Config{
//	    Provider: "openai",
//	    Model:    "gpt35",
//	    SubModel: "gpt35",
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	})
//
// Model names from package model (gpt35, gpt4...) are mapped to API model
// identifiers; any other name is sent unchanged, so custom endpoints work
// with BaseURL. Token bias maps are sent as logit_bias. Requests are never
// retried by the client.
package openai
