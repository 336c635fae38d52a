package provider

import (
	"time"
)

// Role is the role of a composed message.
type Role string

// Roles understood by chat backends.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Message is a role-tagged message ready for a backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Name is the speaker's display name, if the backend accepts one.
	Name string `json:"name,omitempty"`

	// Memo correlates a composed message with the stored message it came
	// from. It is only used while trimming and is never sent.
	Memo string `json:"-"`
}

// NewTextMessage creates a message with no name or memo.
func NewTextMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Channel selects which configured model serves a request.
type Channel string

// Request channels. Submodel is the lighter model used for auxiliary calls
// such as emotion classification.
const (
	ChannelModel    Channel = "model"
	ChannelSubmodel Channel = "submodel"
)

// Request configures a chat completion call.
type Request struct {
	// Messages is the ordered prompt.
	Messages []Message `json:"messages"`

	// Bias maps token ids to logit adjustments.
	Bias map[int]int `json:"bias,omitempty"`

	// CharacterID is the ChaID of the character the reply is written for.
	CharacterID string `json:"character_id,omitempty"`

	// Streaming asks for an incremental reply when the client supports it.
	Streaming bool `json:"streaming,omitempty"`

	// GroupChat is set for multi-character rooms.
	GroupChat bool `json:"group_chat,omitempty"`

	// Temperature overrides the configured temperature when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens overrides the configured response length when > 0.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Channel selects model or submodel. Empty means ChannelModel.
	Channel Channel `json:"channel,omitempty"`

	// Model overrides the model name of the selected channel.
	Model string `json:"model,omitempty"`
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}

// Special carries structured side data a backend returned with a reply.
type Special struct {
	// Emotion is an explicit emotion directive label.
	Emotion string `json:"emotion,omitempty"`
}

// Response is a completed reply.
type Response struct {
	Content string   `json:"content"`
	Special *Special `json:"special,omitempty"`

	Usage        TokenUsage    `json:"usage"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Duration     time.Duration `json:"duration"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add combines token usage from another TokenUsage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// StreamChunk is one step of a streaming reply.
type StreamChunk struct {
	// Content is the accumulated reply text so far, not a delta.
	Content string `json:"content,omitempty"`

	// Special is set when the backend attached side data.
	Special *Special `json:"special,omitempty"`

	// Usage is only set in the final chunk.
	Usage *TokenUsage `json:"usage,omitempty"`

	// Done marks the final chunk.
	Done bool `json:"done"`

	// Error is non-nil if streaming failed.
	Error error `json:"-"`
}
