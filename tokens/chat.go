package tokens

import (
	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/provider"
)

// NameMode controls whether message names are counted.
type NameMode int

const (
	// NameModeNone ignores Message.Name; backends that drop names.
	NameModeNone NameMode = iota
	// NameModeName counts Message.Name plus a separator token.
	NameModeName
)

// MessageCounter counts the cost of one role-tagged message.
type MessageCounter interface {
	CountMessage(m provider.Message) int
}

// ChatTokenizer counts role-tagged messages and encodes bias text.
type ChatTokenizer struct {
	counter  Counter
	encoder  Encoder
	overhead int
	names    NameMode
}

// NewChatTokenizer creates a tokenizer adding overhead tokens per message.
// A nil counter uses the estimating counter; a nil encoder uses WordEncoder.
func NewChatTokenizer(counter Counter, encoder Encoder, overhead int, names NameMode) *ChatTokenizer {
	if counter == nil {
		counter = NewEstimatingCounter()
	}
	if encoder == nil {
		encoder = WordEncoder{}
	}
	return &ChatTokenizer{
		counter:  counter,
		encoder:  encoder,
		overhead: overhead,
		names:    names,
	}
}

// ForModel creates a tokenizer with the message overhead and name handling
// of the given model.
func ForModel(name model.ModelName, counter Counter, encoder Encoder) *ChatTokenizer {
	names := NameModeName
	if model.IsGPT(name) {
		names = NameModeNone
	}
	return NewChatTokenizer(counter, encoder, model.MessageOverhead(name), names)
}

// WithOverhead returns a copy using a different per-message overhead.
// Group rooms reuse the room's overhead for every participant.
func (t *ChatTokenizer) WithOverhead(overhead int) *ChatTokenizer {
	cp := *t
	cp.overhead = overhead
	return &cp
}

// Overhead returns the per-message overhead.
func (t *ChatTokenizer) Overhead() int {
	return t.overhead
}

// CountMessage implements MessageCounter.
func (t *ChatTokenizer) CountMessage(m provider.Message) int {
	n := t.counter.Count(m.Content) + t.overhead
	if t.names == NameModeName && m.Name != "" {
		n += t.counter.Count(m.Name) + 1
	}
	return n
}

// CountMessages sums CountMessage over msgs.
func (t *ChatTokenizer) CountMessages(msgs []provider.Message) int {
	total := 0
	for _, m := range msgs {
		total += t.CountMessage(m)
	}
	return total
}

// Count counts plain text with the underlying counter.
func (t *ChatTokenizer) Count(text string) int {
	return t.counter.Count(text)
}

// FitsInLimit implements Counter.
func (t *ChatTokenizer) FitsInLimit(text string, limit int) bool {
	return t.counter.Count(text) <= limit
}

// Encode implements Encoder.
func (t *ChatTokenizer) Encode(text string) ([]int, error) {
	return t.encoder.Encode(text)
}
