package reply

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/parser"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/script"
	"github.com/randalmurphal/charkit/tokens"
)

// ImageGenerator produces image-generation state from a transcript.
type ImageGenerator interface {
	Generate(ctx context.Context, c *character.Character, transcript string) (string, error)
}

// Turn is the context of one character reply.
type Turn struct {
	Character *character.Character
	Session   *character.ChatSession

	// Group is set for multi-character rooms.
	Group bool

	// Scripts runs the editoutput phase. Nil leaves text unchanged.
	Scripts script.Transformer
}

// Outcome describes a processed reply.
type Outcome struct {
	// Text is the stored message text.
	Text string

	// Index is the position of the stored message in the session.
	Index int

	// Emotion is the label recorded for this turn, if any.
	Emotion string

	// EmotionChanged is set when a directive or the classifier recorded an
	// emotion.
	EmotionChanged bool

	// ScriptEmotion is set when an output script fired an emotion directive,
	// matched or not. The classifier does not run for such replies.
	ScriptEmotion bool

	// Usage is the token usage the provider reported for the reply.
	Usage provider.TokenUsage

	// Reports holds non-fatal follow-up failures.
	Reports []error
}

func (o *Outcome) report(err error) {
	o.Reports = append(o.Reports, err)
}

// Processor post-processes replies. The zero value stores replies but runs
// no classifier or image generation.
type Processor struct {
	// Classifier serves emotion classification on the submodel channel.
	Classifier provider.Client

	// Encoder tokenizes labels for the classifier bias. Defaults to
	// tokens.WordEncoder.
	Encoder tokens.Encoder

	// ImageGen serves imggen characters.
	ImageGen ImageGenerator

	// EmotionPrompt replaces the default classifier instruction when set.
	EmotionPrompt string

	// ClassifierInputTokens clips the reply sent to the classifier. 0 sends
	// it whole.
	ClassifierInputTokens int

	// TranscriptTokens clips the image-generation transcript, keeping the
	// newest text. 0 sends it whole.
	TranscriptTokens int

	// Now and Shuffle are replaceable for tests.
	Now     func() time.Time
	Shuffle func([]string)
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) shuffle(s []string) {
	if p.Shuffle != nil {
		p.Shuffle(s)
		return
	}
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

func (p *Processor) encoder() tokens.Encoder {
	if p.Encoder != nil {
		return p.Encoder
	}
	return tokens.WordEncoder{}
}

// transform runs the reply pipeline on raw text.
func transform(ctx context.Context, t *Turn, raw string) (script.Result, string, error) {
	text := parser.StripNameEcho(raw, t.Character.Name)
	text, inline, hasInline := parser.ExtractEmotion(text)

	res := script.Result{Text: text}
	if t.Scripts != nil {
		var err error
		res, err = t.Scripts.Apply(ctx, text, script.PhaseOutput)
		if err != nil {
			return script.Result{}, "", fmt.Errorf("editoutput scripts: %w", err)
		}
	}
	if hasInline {
		return res, inline, nil
	}
	return res, "", nil
}

// Finalize stores a complete reply as a char message and returns the
// outcome without running follow-ups.
func (p *Processor) Finalize(ctx context.Context, t *Turn, raw string, special *provider.Special) (*Outcome, error) {
	res, inline, err := transform(ctx, t, raw)
	if err != nil {
		return nil, err
	}
	idx := t.Session.Append(character.Message{
		Role:   character.RoleChar,
		Data:   res.Text,
		Saying: t.Character.ChaID,
	})
	out := &Outcome{Text: res.Text, Index: idx}
	p.applyDirectives(t.Character, out, special, res, inline)
	return out, nil
}

// applyDirectives records the first matching explicit emotion: provider
// side data, then script directives, then inline tags.
func (p *Processor) applyDirectives(c *character.Character, out *Outcome, special *provider.Special, res script.Result, inline string) {
	out.ScriptEmotion = res.EmotionChanged
	var candidates []string
	if special != nil && special.Emotion != "" {
		candidates = append(candidates, special.Emotion)
	}
	if res.EmotionChanged && res.Emotion != "" {
		candidates = append(candidates, res.Emotion)
	}
	if inline != "" {
		candidates = append(candidates, inline)
	}
	for _, label := range candidates {
		if p.ApplyDirective(c, label) {
			out.Emotion = label
			out.EmotionChanged = true
			return
		}
	}
}

// ApplyDirective records label if the character has an emotion image with
// exactly that label. It reports whether a record was pushed.
func (p *Processor) ApplyDirective(c *character.Character, label string) bool {
	img, ok := c.FindEmotion(label)
	if !ok {
		return false
	}
	c.RecentEmotions.Push(character.EmotionRecord{Label: img.Label, Asset: img.Asset, At: p.now()})
	return true
}

// After runs the view-screen follow-up for a stored reply. Failures are
// added to out.Reports.
func (p *Processor) After(ctx context.Context, t *Turn, out *Outcome) {
	c := t.Character
	switch c.ViewScreen {
	case character.ViewScreenEmotion:
		if out.EmotionChanged || out.ScriptEmotion {
			return
		}
		label, ok, err := p.Classify(ctx, c, out.Text)
		if err != nil {
			slog.Warn("emotion classifier failed",
				slog.String("character", c.ChaID),
				slog.Any("error", err))
			out.report(err)
			return
		}
		if !ok {
			slog.Debug("emotion classifier found no match", slog.String("character", c.ChaID))
			return
		}
		out.Emotion = label
		out.EmotionChanged = true

	case character.ViewScreenImgGen:
		if err := p.GenerateImage(ctx, t); err != nil {
			slog.Warn("image generation skipped",
				slog.String("character", c.ChaID),
				slog.Any("error", err))
			out.report(err)
		}
	}
}

// Process finalizes a complete reply and runs its follow-up.
func (p *Processor) Process(ctx context.Context, t *Turn, resp *provider.Response) (*Outcome, error) {
	out, err := p.Finalize(ctx, t, resp.Content, resp.Special)
	if err != nil {
		return nil, err
	}
	out.Usage = resp.Usage
	p.After(ctx, t, out)
	return out, nil
}
