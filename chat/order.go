package chat

import (
	"sort"
	"strings"

	"github.com/randalmurphal/charkit/character"
)

// Speaker is a group member scheduled to reply.
type Speaker struct {
	character.Participant
	Name string
}

// Order sorts speakers for a round. Members named in lastMessage come
// first, in order of first mention; the rest follow by descending
// talkativeness. Ties keep room order.
func Order(speakers []Speaker, lastMessage string) []Speaker {
	out := append([]Speaker(nil), speakers...)
	text := strings.ToLower(lastMessage)
	mention := func(s Speaker) int {
		if s.Name == "" {
			return -1
		}
		return strings.Index(text, strings.ToLower(s.Name))
	}
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := mention(out[i]), mention(out[j])
		switch {
		case mi >= 0 && mj >= 0:
			return mi < mj
		case mi >= 0:
			return true
		case mj >= 0:
			return false
		}
		return out[i].Talkativeness > out[j].Talkativeness
	})
	return out
}
