package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/randalmurphal/charkit/character"
)

// Phase selects which scripts run.
type Phase string

// Script phases as stored in CustomScript.Type.
const (
	PhaseInput   Phase = "editinput"
	PhaseOutput  Phase = "editoutput"
	PhaseProcess Phase = "editprocess"
	PhaseDisplay Phase = "editdisplay"
)

// EmotionDirective prefixes a script output that sets an emotion.
const EmotionDirective = "@@emo "

// ErrInvalidPattern is returned by Compile for a script that is not a valid
// regular expression.
var ErrInvalidPattern = errors.New("invalid script pattern")

// Result is the outcome of applying one phase.
type Result struct {
	Text string

	// EmotionChanged is set when an emotion directive matched.
	EmotionChanged bool

	// Emotion is the label of the last matching directive.
	Emotion string
}

// Transformer rewrites text for a phase.
type Transformer interface {
	Apply(ctx context.Context, text string, phase Phase) (Result, error)
}

// Nop returns text unchanged.
type Nop struct{}

// Apply implements Transformer.
func (Nop) Apply(_ context.Context, text string, _ Phase) (Result, error) {
	return Result{Text: text}, nil
}

type rule struct {
	re      *regexp.Regexp
	out     string
	phase   Phase
	emotion string
}

// RegexTransformer runs compiled custom scripts.
type RegexTransformer struct {
	rules []rule
}

// Compile builds a transformer, failing on the first invalid pattern.
func Compile(scripts []character.CustomScript) (*RegexTransformer, error) {
	t := &RegexTransformer{}
	for i, s := range scripts {
		r, err := compileRule(s)
		if err != nil {
			return nil, fmt.Errorf("%w: script %d (%s): %w", ErrInvalidPattern, i, s.Comment, err)
		}
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// New builds a transformer, skipping scripts whose pattern does not compile.
// Cards carry user-authored patterns, so a bad one is logged and ignored.
func New(scripts []character.CustomScript) *RegexTransformer {
	t := &RegexTransformer{}
	for _, s := range scripts {
		r, err := compileRule(s)
		if err != nil {
			slog.Warn("skipping custom script",
				slog.String("comment", s.Comment),
				slog.Any("error", err))
			continue
		}
		t.rules = append(t.rules, r)
	}
	return t
}

func compileRule(s character.CustomScript) (rule, error) {
	re, err := regexp.Compile(s.In)
	if err != nil {
		return rule{}, err
	}
	r := rule{re: re, out: s.Out, phase: Phase(s.Type)}
	if strings.HasPrefix(s.Out, EmotionDirective) {
		r.emotion = strings.TrimSpace(s.Out[len(EmotionDirective):])
	}
	return r, nil
}

// Len returns the number of compiled scripts.
func (t *RegexTransformer) Len() int {
	return len(t.rules)
}

// Apply implements Transformer.
func (t *RegexTransformer) Apply(ctx context.Context, text string, phase Phase) (Result, error) {
	res := Result{Text: text}
	for _, r := range t.rules {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if r.phase != phase {
			continue
		}
		if r.emotion != "" {
			if r.re.MatchString(res.Text) {
				res.Text = r.re.ReplaceAllString(res.Text, "")
				res.EmotionChanged = true
				res.Emotion = r.emotion
			}
			continue
		}
		res.Text = r.re.ReplaceAllString(res.Text, r.out)
	}
	return res, nil
}

// ApplyText runs a phase and returns only the text. A nil transformer
// returns text unchanged.
func ApplyText(ctx context.Context, t Transformer, text string, phase Phase) (string, error) {
	if t == nil {
		return text, nil
	}
	res, err := t.Apply(ctx, text, phase)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
