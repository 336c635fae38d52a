// Package provider defines the model transport the engine sends composed
// prompts through.
//
// Backends register a Factory under a name and are created from a Config:
//
//	client, err := provider.New("openai", provider.Config{
//	    Model:    "gpt-3.5-turbo",
//	    SubModel: "gpt-3.5-turbo",
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// A request either completes (Send) or streams (Stream). Streaming chunks carry
// the accumulated text so far so consumers can re-run non-incremental
// transforms on every step.
package provider

import "context"

// Client is a chat model transport.
// Implementations must be safe for concurrent use.
type Client interface {
	// Send performs a request and returns the complete reply.
	Send(ctx context.Context, req Request) (*Response, error)

	// Stream performs a request and returns a channel of chunks.
	// The channel is closed after the chunk with Done set or an error chunk.
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// Provider returns the provider name.
	Provider() string

	// Capabilities describes what this client supports.
	Capabilities() Capabilities

	// Close releases any resources held by the client.
	Close() error
}

// Capabilities describes what a backend supports.
type Capabilities struct {
	// Streaming indicates incremental replies are available.
	Streaming bool `json:"streaming"`

	// LogitBias indicates token bias maps are honored.
	LogitBias bool `json:"logit_bias"`

	// Names indicates per-message speaker names are sent.
	Names bool `json:"names"`

	// SubModel indicates a separate lighter model serves ChannelSubmodel.
	SubModel bool `json:"sub_model"`
}

// OpenAICapabilities describes OpenAI-compatible chat completion backends.
var OpenAICapabilities = Capabilities{
	Streaming: true,
	LogitBias: true,
	Names:     false,
	SubModel:  true,
}
