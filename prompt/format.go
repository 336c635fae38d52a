package prompt

import (
	"regexp"
	"strings"

	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/template"
)

// Memos attached to synthetic history messages.
const (
	MemoNewChat        = "NewChat"
	MemoNewChatExample = "NewChatExample"
)

// NewChatMarker is the system message separating setup from conversation.
const NewChatMarker = "[Start a new chat]"

const rolePrefix = "@@@"

var roleMarker = regexp.MustCompile(`@@@(user|assistant|system)\n`)

// SplitRoles splits prompt text into role-tagged messages. Sections start
// with "@@@user", "@@@assistant" or "@@@system" on their own line; text
// without a leading marker is one system section. Section contents are
// trimmed.
func SplitRoles(text string) []provider.Message {
	if !strings.HasPrefix(text, rolePrefix) {
		text = rolePrefix + "system\n" + text
	}
	idx := roleMarker.FindAllStringSubmatchIndex(text, -1)
	msgs := make([]provider.Message, 0, len(idx))
	for i, m := range idx {
		role := provider.Role(text[m[2]:m[3]])
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		msgs = append(msgs, provider.NewTextMessage(role, strings.TrimSpace(text[m[1]:end])))
	}
	return msgs
}

// Example speaker names.
const (
	ExampleUserName      = "example_user"
	ExampleAssistantName = "example_assistant"
)

var exampleStart = regexp.MustCompile(`(?i)<start>`)

// ParseExamples turns example dialogue into history turns. Each "<START>"
// block yields a new-chat marker followed by its turns; lines beginning with
// {{user}}: or <user>: start a user turn, {{char}}: or <char>: an assistant
// turn, and other lines continue the current turn.
func ParseExamples(text string, engine *template.Engine, vars template.Vars) []provider.Message {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []provider.Message
	for _, block := range exampleStart.Split(text, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var turns []provider.Message
		for _, line := range strings.Split(block, "\n") {
			trimmed := strings.TrimSpace(line)
			if role, name, rest, ok := exampleSpeaker(trimmed); ok {
				turns = append(turns, provider.Message{Role: role, Name: name, Content: rest})
				continue
			}
			if len(turns) == 0 {
				continue
			}
			turns[len(turns)-1].Content += "\n" + line
		}
		if len(turns) == 0 {
			continue
		}
		out = append(out, provider.Message{
			Role:    provider.RoleSystem,
			Content: NewChatMarker,
			Memo:    MemoNewChatExample,
		})
		for _, t := range turns {
			t.Content = strings.TrimSpace(engine.Render(t.Content, vars))
			if t.Content == "" {
				continue
			}
			out = append(out, t)
		}
	}
	return out
}

func exampleSpeaker(line string) (provider.Role, string, string, bool) {
	for _, p := range []struct {
		prefix string
		role   provider.Role
		name   string
	}{
		{"{{user}}:", provider.RoleUser, ExampleUserName},
		{"<user>:", provider.RoleUser, ExampleUserName},
		{"{{char}}:", provider.RoleAssistant, ExampleAssistantName},
		{"<char>:", provider.RoleAssistant, ExampleAssistantName},
	} {
		if strings.HasPrefix(line, p.prefix) {
			return p.role, p.name, strings.TrimSpace(line[len(p.prefix):]), true
		}
	}
	return "", "", "", false
}
