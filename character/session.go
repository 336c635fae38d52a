package character

// Role identifies who wrote a stored chat message.
type Role string

// Stored message roles.
const (
	RoleUser Role = "user"
	RoleChar Role = "char"
)

// Message is a stored chat turn.
type Message struct {
	Role Role   `json:"role"`
	Data string `json:"data"`
	// Saying is the ChaID of the speaking character in group rooms.
	Saying string `json:"saying,omitempty"`
	// ChatID is the stable message id. It is assigned lazily the first time
	// the message takes part in a composition.
	ChatID string `json:"chat_id,omitempty"`
}

// ChatSession is an ordered, append-only list of messages plus session state.
type ChatSession struct {
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
	// Note is the author's note.
	Note string `json:"note"`
	// SupaMemoryData is the opaque summarizer payload.
	SupaMemoryData string `json:"supa_memory_data,omitempty"`
	// LastMemory is the ChatID of the oldest message still in context after
	// the last budget fit.
	LastMemory  string      `json:"last_memory,omitempty"`
	IsStreaming bool        `json:"is_streaming,omitempty"`
	SDData      string      `json:"sd_data,omitempty"`
	LocalLore   []LoreEntry `json:"local_lore"`
}

// NewSession returns an empty named session.
func NewSession(name string) ChatSession {
	return ChatSession{
		Name:      name,
		Messages:  []Message{},
		LocalLore: []LoreEntry{},
	}
}

// Append adds a message to the end of the session and returns its index.
func (s *ChatSession) Append(m Message) int {
	s.Messages = append(s.Messages, m)
	return len(s.Messages) - 1
}

// Last returns the newest message, if any.
func (s *ChatSession) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// EnsureIDs assigns a ChatID to every message that lacks one.
func (s *ChatSession) EnsureIDs() {
	for i := range s.Messages {
		if s.Messages[i].ChatID == "" {
			s.Messages[i].ChatID = NewID()
		}
	}
}
