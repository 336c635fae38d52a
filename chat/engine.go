package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/prompt"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/reply"
	"github.com/randalmurphal/charkit/script"
	"github.com/randalmurphal/charkit/tokens"
	"github.com/randalmurphal/charkit/truncate"
)

// Options configure an Engine.
type Options struct {
	Prompt prompt.Options

	// Model selects the context cap and per-message overhead.
	Model model.ModelName

	// MaxContext is the user's context size. The model cap still applies.
	MaxContext int

	// Bias is the global bias, applied after the character's.
	Bias []character.BiasEntry

	// Streaming requests incremental replies when the client supports them.
	Streaming bool

	// Temperature overrides the client's sampling temperature.
	Temperature *float64

	// SummaryDisabled makes rooms with summarization enabled evict instead.
	SummaryDisabled bool
}

// Engine runs chat turns.
type Engine struct {
	Client    provider.Client
	Composer  *prompt.Composer
	Processor *reply.Processor
	Encoder   tokens.Encoder

	// Summarizer serves characters and rooms with summarization enabled.
	Summarizer truncate.Summarizer

	// Lookup resolves group members and group message speakers.
	Lookup func(id string) (*character.Character, bool)

	// Usage accumulates token usage per model. Optional.
	Usage *model.UsageTracker

	Options Options

	mu      sync.Mutex
	sending bool
}

// NewEngine creates an engine with a model-aware tokenizer over enc, the
// default lorebook loader and a processor classifying through client.
// A nil enc uses the cl100k tiktoken encoding.
func NewEngine(client provider.Client, opts Options, enc tokens.Encoder) *Engine {
	if enc == nil {
		enc = tokens.NewTiktokenEncoder(tokens.DefaultEncoding)
	}
	tk := tokens.ForModel(opts.Model, nil, enc)
	return &Engine{
		Client:    client,
		Composer:  prompt.NewComposer(tk, nil),
		Processor: &reply.Processor{Classifier: client, Encoder: enc},
		Encoder:   enc,
		Usage:     model.NewUsageTracker(),
		Options:   opts,
	}
}

// SendRequest selects the room to continue. Exactly one of Character and
// Group is set.
type SendRequest struct {
	Character *character.Character
	Group     *character.Group
}

// Reply is one stored character reply.
type Reply struct {
	Speaker *character.Character
	Outcome *reply.Outcome

	// Evicted counts history messages dropped to fit the context.
	Evicted int
}

// Turn is the result of a send.
type Turn struct {
	Replies []Reply
}

// acquire takes the sending flag. A reentrant caller proceeds while the
// flag is held and never releases it.
func (e *Engine) acquire(reentrant bool) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sending {
		if reentrant {
			return func() {}, nil
		}
		return nil, ErrBusy
	}
	e.sending = true
	return func() {
		e.mu.Lock()
		e.sending = false
		e.mu.Unlock()
	}, nil
}

// Send continues a room. For groups it runs one round.
func (e *Engine) Send(ctx context.Context, req SendRequest) (*Turn, error) {
	if req.Character == nil && req.Group == nil {
		return nil, ErrNoRoom
	}
	release, err := e.acquire(false)
	if err != nil {
		return nil, err
	}
	defer release()

	if req.Group == nil {
		c := req.Character
		r, err := e.respond(ctx, c, c.CurrentChat(), nil, script.New(c.CustomScripts), c.SupaMemory)
		if err != nil {
			return nil, err
		}
		return &Turn{Replies: []Reply{*r}}, nil
	}
	return e.round(ctx, req.Group)
}

// SendParticipant prompts the member at index of g. It may run inside a
// round in progress.
func (e *Engine) SendParticipant(ctx context.Context, g *character.Group, index int) (*Reply, error) {
	release, err := e.acquire(true)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.participant(ctx, g, index)
}

func (e *Engine) round(ctx context.Context, g *character.Group) (*Turn, error) {
	session := g.CurrentChat()
	last, _ := session.Last()

	var speakers []Speaker
	for _, p := range g.Participants() {
		s := Speaker{Participant: p}
		if c, ok := e.lookup(p.ID); ok {
			s.Name = c.Name
		}
		speakers = append(speakers, s)
	}
	if !g.OrderByOrder {
		speakers = Order(speakers, last.Data)
		kept := speakers[:0]
		for _, s := range speakers {
			if last.Saying == "" || s.ID != last.Saying {
				kept = append(kept, s)
			}
		}
		speakers = kept
	}

	turn := &Turn{}
	for _, s := range speakers {
		r, err := e.participant(ctx, g, s.Index)
		if err != nil {
			return turn, err
		}
		turn.Replies = append(turn.Replies, *r)
	}
	return turn, nil
}

func (e *Engine) participant(ctx context.Context, g *character.Group, index int) (*Reply, error) {
	if index < 0 || index >= len(g.Members) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownMember, index)
	}
	c, ok := e.lookup(g.Members[index])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMember, g.Members[index])
	}
	return e.respond(ctx, c, g.CurrentChat(), g, script.New(g.CustomScripts), g.SupaMemory)
}

func (e *Engine) lookup(id string) (*character.Character, bool) {
	if e.Lookup == nil {
		return nil, false
	}
	return e.Lookup(id)
}

// respond produces one reply from speaker into session.
func (e *Engine) respond(ctx context.Context, speaker *character.Character, session *character.ChatSession,
	group *character.Group, scripts script.Transformer, summarize bool) (*Reply, error) {

	comp, err := e.Composer.Compose(ctx, prompt.Input{
		Speaker: speaker,
		Session: session,
		Group:   group,
		Scripts: scripts,
		Lookup:  e.Lookup,
		Options: e.Options.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}

	mode := truncate.ModeEvict
	if summarize && !e.Options.SummaryDisabled {
		mode = truncate.ModeSummarize
	}
	fit, err := truncate.Fit(ctx, truncate.FitRequest{
		History:    comp.History,
		Tokens:     comp.Tokens,
		MaxContext: e.Options.MaxContext,
		Model:      e.Options.Model,
		Session:    session,
		Character:  speaker,
		Counter:    e.Composer.Tokenizer(),
		Mode:       mode,
		Summarizer: e.Summarizer,
	})
	if err != nil {
		return nil, err
	}

	bias, err := tokens.BuildBias(e.Encoder, speaker.Bias, e.Options.Bias)
	if err != nil {
		return nil, fmt.Errorf("build bias: %w", err)
	}

	req := provider.Request{
		Messages:    comp.Assemble(fit.History),
		Bias:        bias,
		CharacterID: speaker.ChaID,
		Streaming:   e.Options.Streaming,
		Temperature: e.Options.Temperature,
		GroupChat:   group != nil,
		Channel:     provider.ChannelModel,
	}
	turn := &reply.Turn{
		Character: speaker,
		Session:   session,
		Group:     group != nil,
		Scripts:   scripts,
	}

	slog.Debug("sending chat request",
		slog.String("character", speaker.ChaID),
		slog.Int("messages", len(req.Messages)),
		slog.Int("tokens", fit.Tokens),
		slog.Int("evicted", fit.Evicted))

	var out *reply.Outcome
	if req.Streaming && e.Client.Capabilities().Streaming {
		chunks, err := e.Client.Stream(ctx, req)
		if err != nil {
			return nil, err
		}
		if out, err = e.Processor.ConsumeStream(ctx, turn, chunks); err != nil {
			return nil, err
		}
	} else {
		req.Streaming = false
		resp, err := e.Client.Send(ctx, req)
		if err != nil {
			return nil, err
		}
		if out, err = e.Processor.Process(ctx, turn, resp); err != nil {
			return nil, err
		}
	}

	if e.Usage != nil {
		e.Usage.Record(e.Options.Model, out.Usage.InputTokens, out.Usage.OutputTokens)
	}

	return &Reply{Speaker: speaker, Outcome: out, Evicted: fit.Evicted}, nil
}
