package prompt

import (
	"strings"

	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/tokens"
)

// GroupName names a block of the composed prompt.
type GroupName string

// Prompt groups.
const (
	GroupMain           GroupName = "main"
	GroupJailbreak      GroupName = "jailbreak"
	GroupChats          GroupName = "chats"
	GroupLorebook       GroupName = "lorebook"
	GroupGlobalNote     GroupName = "globalNote"
	GroupAuthorNote     GroupName = "authorNote"
	GroupLastChat       GroupName = "lastChat"
	GroupDescription    GroupName = "description"
	GroupPostEverything GroupName = "postEverything"
)

// AllGroups lists every group in internal build order.
var AllGroups = []GroupName{
	GroupMain, GroupJailbreak, GroupChats, GroupLorebook, GroupGlobalNote,
	GroupAuthorNote, GroupLastChat, GroupDescription, GroupPostEverything,
}

// DefaultOrder is the default external group order.
var DefaultOrder = []GroupName{
	GroupMain, GroupDescription, GroupChats, GroupLastChat,
	GroupJailbreak, GroupLorebook, GroupGlobalNote, GroupAuthorNote,
}

// Valid reports whether g is a known group.
func (g GroupName) Valid() bool {
	for _, k := range AllGroups {
		if k == g {
			return true
		}
	}
	return false
}

// Groups holds the messages of each group.
type Groups map[GroupName][]provider.Message

// Tokens sums the message cost of every group.
func (g Groups) Tokens(counter tokens.MessageCounter) int {
	total := 0
	for _, name := range AllGroups {
		for _, m := range g[name] {
			total += counter.CountMessage(m)
		}
	}
	return total
}

// minSystemText is the length, ignoring newlines, a coalesced system block
// must exceed to be emitted.
const minSystemText = 3

// Merge flattens groups in the given order followed by the post-everything
// group. A group holding exactly one system message is buffered; consecutive
// buffered groups are joined with newlines into one system message, skipping
// empty texts, and emitted only if the joined text without newlines is
// longer than 3 characters. Any other
// group flushes the buffer first. Returned messages are copies with memos
// cleared.
func Merge(order []GroupName, groups Groups) []provider.Message {
	full := make([]GroupName, 0, len(order)+1)
	for _, g := range order {
		if g != GroupPostEverything {
			full = append(full, g)
		}
	}
	full = append(full, GroupPostEverything)

	var out []provider.Message
	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		text := strings.Join(pending, "\n")
		if len(strings.ReplaceAll(text, "\n", "")) > minSystemText {
			out = append(out, provider.NewTextMessage(provider.RoleSystem, text))
		}
		pending = nil
	}

	for _, name := range full {
		msgs := groups[name]
		if len(msgs) == 1 && msgs[0].Role == provider.RoleSystem {
			if msgs[0].Content != "" {
				pending = append(pending, msgs[0].Content)
			}
			continue
		}
		flush()
		for _, m := range msgs {
			m.Memo = ""
			out = append(out, m)
		}
	}
	flush()
	return out
}
