package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/lorebook"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/script"
	"github.com/randalmurphal/charkit/template"
	"github.com/randalmurphal/charkit/tokens"
)

// Description clause labels.
const (
	PersonalityLabel = "\n\nDescription of {{char}}: "
	ScenarioLabel    = "\n\nCircumstances and context of the dialogue: "
)

// ErrNoSpeaker is returned when Input has no speaking character or session.
var ErrNoSpeaker = errors.New("prompt: speaker and session are required")

// Options are the global prompt settings.
type Options struct {
	MainPrompt        string
	Jailbreak         string
	JailbreakToggle   bool
	GlobalNote        string
	AdditionalPrompt  string
	DescriptionPrefix string
	PromptPreprocess  bool
	Username          string
	MaxResponse       int
	Order             []GroupName
}

// Input describes one composition.
type Input struct {
	// Speaker is the character whose reply is being prompted.
	Speaker *character.Character

	// Session is the chat being continued.
	Session *character.ChatSession

	// Group is set when the session belongs to a multi-character room.
	Group *character.Group

	// Scripts transforms history text. When nil, the room's custom scripts
	// are used.
	Scripts script.Transformer

	// Lookup resolves a message's Saying id to a character.
	Lookup func(id string) (*character.Character, bool)

	Options Options
}

// IsGroup reports whether the input is a multi-character room.
func (in Input) IsGroup() bool {
	return in.Group != nil
}

// Composition is the output of Compose.
type Composition struct {
	// Groups holds every group except chats and lastChat.
	Groups Groups

	// History is the chat history with correlation memos, oldest first.
	History []provider.Message

	// Tokens is the running estimate: reserved response, every group and
	// the whole history.
	Tokens int

	// Order is the external group order.
	Order []GroupName
}

// Assemble builds the final message list from a fitted history: the last
// history message becomes the lastChat group, the rest the chats group.
func (c *Composition) Assemble(history []provider.Message) []provider.Message {
	groups := make(Groups, len(c.Groups)+2)
	for k, v := range c.Groups {
		groups[k] = v
	}
	if n := len(history); n > 0 {
		groups[GroupChats] = history[:n-1]
		groups[GroupLastChat] = history[n-1:]
	}
	return Merge(c.Order, groups)
}

// Messages assembles the unfitted history.
func (c *Composition) Messages() []provider.Message {
	return c.Assemble(c.History)
}

// Composer builds compositions.
type Composer struct {
	tokenizer *tokens.ChatTokenizer
	lore      lorebook.Loader
	templates *template.Engine
}

// NewComposer creates a composer. A nil loader uses a KeywordLoader over the
// tokenizer.
func NewComposer(tk *tokens.ChatTokenizer, lore lorebook.Loader) *Composer {
	if tk == nil {
		tk = tokens.NewChatTokenizer(nil, nil, 0, tokens.NameModeNone)
	}
	if lore == nil {
		lore = lorebook.NewKeywordLoader(tk)
	}
	return &Composer{
		tokenizer: tk,
		lore:      lore,
		templates: template.NewEngine(),
	}
}

// Tokenizer returns the tokenizer used for estimates.
func (c *Composer) Tokenizer() *tokens.ChatTokenizer {
	return c.tokenizer
}

// Compose builds the groups and history for in. Messages in in.Session
// without a ChatID are assigned one.
func (c *Composer) Compose(ctx context.Context, in Input) (*Composition, error) {
	if in.Speaker == nil || in.Session == nil {
		return nil, ErrNoSpeaker
	}
	speaker, opts := in.Speaker, in.Options
	vars := template.Vars{Char: speaker.Name, User: opts.Username}
	render := func(s string) string { return c.templates.Render(s, vars) }

	scripts := in.Scripts
	if scripts == nil {
		if in.IsGroup() {
			scripts = script.New(in.Group.CustomScripts)
		} else {
			scripts = script.New(speaker.CustomScripts)
		}
	}

	groups := Groups{}

	if !speaker.UtilityBot {
		main := template.ApplyOriginal(speaker.SystemPrompt, opts.MainPrompt)
		if opts.PromptPreprocess && opts.AdditionalPrompt != "" {
			main += "\n" + opts.AdditionalPrompt
		}
		groups[GroupMain] = SplitRoles(render(main))

		if opts.JailbreakToggle {
			groups[GroupJailbreak] = SplitRoles(render(opts.Jailbreak))
		}

		note := template.ApplyOriginal(speaker.ReplaceGlobalNote, opts.GlobalNote)
		groups[GroupGlobalNote] = SplitRoles(render(note))
	}

	if in.Session.Note != "" {
		groups[GroupAuthorNote] = []provider.Message{
			provider.NewTextMessage(provider.RoleSystem, render(in.Session.Note)),
		}
	}

	groups[GroupDescription] = []provider.Message{
		provider.NewTextMessage(provider.RoleSystem, describe(speaker, opts, render)),
	}
	if in.IsGroup() {
		groups[GroupPostEverything] = []provider.Message{
			provider.NewTextMessage(provider.RoleSystem, fmt.Sprintf("[Write the next reply only as %s]", speaker.Name)),
		}
	}

	lore, err := c.lore.Load(ctx, lorebook.LoadRequest{
		Entries:  append(append([]character.LoreEntry{}, speaker.Lorebook...), in.Session.LocalLore...),
		Settings: speaker.LoreSettings,
		Messages: sessionTexts(in.Session),
	})
	if err != nil {
		return nil, fmt.Errorf("load lorebook: %w", err)
	}
	groups[GroupLorebook] = []provider.Message{
		provider.NewTextMessage(provider.RoleSystem, render(lore)),
	}

	total := opts.MaxResponse + groups.Tokens(c.tokenizer)

	history := ParseExamples(speaker.ExampleMessage, c.templates, vars)
	history = append(history, provider.Message{
		Role:    provider.RoleSystem,
		Content: NewChatMarker,
		Memo:    MemoNewChat,
	})

	if !in.IsGroup() {
		greeting, err := script.ApplyText(ctx, scripts, render(speaker.Greeting()), script.PhaseProcess)
		if err != nil {
			return nil, fmt.Errorf("transform greeting: %w", err)
		}
		history = append(history, provider.NewTextMessage(provider.RoleAssistant, greeting))
	}

	in.Session.EnsureIDs()
	for _, msg := range in.Session.Messages {
		text, err := script.ApplyText(ctx, scripts, render(msg.Data), script.PhaseProcess)
		if err != nil {
			return nil, fmt.Errorf("transform message %s: %w", msg.ChatID, err)
		}
		role := provider.RoleAssistant
		if msg.Role == character.RoleUser {
			role = provider.RoleUser
		}
		history = append(history, provider.Message{
			Role:    role,
			Content: text,
			Name:    speakerName(in, msg),
			Memo:    msg.ChatID,
		})
	}

	total += c.tokenizer.CountMessages(history)

	order := opts.Order
	if len(order) == 0 {
		order = DefaultOrder
	}

	return &Composition{
		Groups:  groups,
		History: history,
		Tokens:  total,
		Order:   order,
	}, nil
}

func describe(c *character.Character, opts Options, render func(string) string) string {
	prefix := ""
	if opts.PromptPreprocess {
		prefix = opts.DescriptionPrefix
	}
	desc := render(prefix + c.Description)
	if c.Personality != "" {
		desc += render(PersonalityLabel + c.Personality)
	}
	if c.Scenario != "" {
		desc += render(ScenarioLabel + c.Scenario)
	}
	return desc
}

func speakerName(in Input, msg character.Message) string {
	switch msg.Role {
	case character.RoleUser:
		return in.Options.Username
	case character.RoleChar:
		if msg.Saying != "" && in.Lookup != nil {
			if c, ok := in.Lookup(msg.Saying); ok {
				return c.Name
			}
		}
		return in.Speaker.Name
	}
	return ""
}

func sessionTexts(s *character.ChatSession) []string {
	texts := make([]string, len(s.Messages))
	for i, m := range s.Messages {
		texts[i] = m.Data
	}
	return texts
}
