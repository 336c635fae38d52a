package reply

import (
	"context"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/script"
)

// Reducer owns the in-progress message of a streaming reply. Each chunk
// replaces the message text with the pipeline output for the accumulated
// reply.
type Reducer struct {
	p    *Processor
	turn *Turn

	index   int
	raw     string
	res     script.Result
	inline  string
	special *provider.Special
	usage   provider.TokenUsage
	done    bool
}

// NewReducer appends an empty char message and marks the session as
// streaming.
func (p *Processor) NewReducer(t *Turn) *Reducer {
	idx := t.Session.Append(character.Message{
		Role:   character.RoleChar,
		Saying: t.Character.ChaID,
	})
	t.Session.IsStreaming = true
	return &Reducer{p: p, turn: t, index: idx}
}

// Reduce applies one chunk. Chunk content is the accumulated reply, not a
// delta. A Done chunk ends streaming.
func (r *Reducer) Reduce(ctx context.Context, chunk provider.StreamChunk) error {
	if r.done {
		return nil
	}
	if chunk.Special != nil {
		r.special = chunk.Special
	}
	if chunk.Usage != nil {
		r.usage = *chunk.Usage
	}
	if chunk.Content != "" && chunk.Content != r.raw {
		res, inline, err := transform(ctx, r.turn, chunk.Content)
		if err != nil {
			r.finish()
			return err
		}
		r.raw = chunk.Content
		r.res = res
		r.inline = inline
		r.turn.Session.Messages[r.index].Data = res.Text
	}
	if chunk.Done {
		r.finish()
	}
	return nil
}

func (r *Reducer) finish() {
	r.done = true
	r.turn.Session.IsStreaming = false
}

// Done reports whether streaming has ended.
func (r *Reducer) Done() bool {
	return r.done
}

// Text returns the current message text.
func (r *Reducer) Text() string {
	return r.res.Text
}

// Outcome applies directives and returns the outcome of the reduced reply.
// Call it once streaming is done.
func (r *Reducer) Outcome() *Outcome {
	out := &Outcome{Text: r.res.Text, Index: r.index, Usage: r.usage}
	r.p.applyDirectives(r.turn.Character, out, r.special, r.res, r.inline)
	return out
}

// ConsumeStream reduces chunks until the stream completes, then runs the
// follow-up. Cancelling ctx stops consumption; the partial text stays in
// the session with streaming cleared.
func (p *Processor) ConsumeStream(ctx context.Context, t *Turn, chunks <-chan provider.StreamChunk) (*Outcome, error) {
	r := p.NewReducer(t)
	for !r.Done() {
		select {
		case <-ctx.Done():
			r.finish()
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				r.finish()
				break
			}
			if chunk.Error != nil {
				r.finish()
				return nil, chunk.Error
			}
			if err := r.Reduce(ctx, chunk); err != nil {
				return nil, err
			}
		}
	}
	out := r.Outcome()
	p.After(ctx, t, out)
	return out, nil
}
