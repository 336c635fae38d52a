package character

// Group is a multi-character room. Members are referenced by ChaID.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Members []string `json:"members"`
	// Active and Talkativeness are indexed like Members.
	Active        []bool         `json:"active"`
	Talkativeness []float64      `json:"talkativeness"`
	OrderByOrder  bool           `json:"order_by_order"`
	CustomScripts []CustomScript `json:"custom_scripts"`
	SupaMemory    bool           `json:"supa_memory"`

	Chats    []ChatSession `json:"chats"`
	ChatPage int           `json:"chat_page"`
}

// NewGroup creates a group room with one empty session.
func NewGroup(name string, members ...string) *Group {
	g := &Group{
		ID:            NewID(),
		Name:          name,
		Members:       members,
		Active:        make([]bool, len(members)),
		Talkativeness: make([]float64, len(members)),
		CustomScripts: []CustomScript{},
		Chats:         []ChatSession{NewSession("Chat 1")},
	}
	for i := range members {
		g.Active[i] = true
		g.Talkativeness[i] = 0.5
	}
	return g
}

// CurrentChat returns the selected chat session.
func (g *Group) CurrentChat() *ChatSession {
	if len(g.Chats) == 0 {
		g.Chats = []ChatSession{NewSession("Chat 1")}
		g.ChatPage = 0
	}
	if g.ChatPage < 0 || g.ChatPage >= len(g.Chats) {
		g.ChatPage = 0
	}
	return &g.Chats[g.ChatPage]
}

// Participant is a member eligible to speak in a turn.
type Participant struct {
	ID            string
	Index         int
	Talkativeness float64
}

// Participants returns active members with positive talkativeness, in
// member order.
func (g *Group) Participants() []Participant {
	var out []Participant
	for i, id := range g.Members {
		active := i < len(g.Active) && g.Active[i]
		talk := -1.0
		if active && i < len(g.Talkativeness) {
			talk = g.Talkativeness[i]
		}
		if talk > 0 {
			out = append(out, Participant{ID: id, Index: i, Talkativeness: talk})
		}
	}
	return out
}
