package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/truncate"
)

// Transcript renders the latest exchange for image generation: the trailing
// run of char messages plus the user message before it, oldest first. Only
// the first newline of each message is flattened.
func Transcript(msgs []character.Message) string {
	var b []string
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		line := strings.Replace(m.Data, "\n", " ", 1) + " \n"
		if m.Role == character.RoleChar {
			b = append(b, "character: "+line)
			continue
		}
		b = append(b, "user: "+line)
		break
	}
	var sb strings.Builder
	for i := len(b) - 1; i >= 0; i-- {
		sb.WriteString(b[i])
	}
	return sb.String()
}

// GenerateImage builds the transcript and stores the generator's result on
// the session. Group rooms are not supported.
func (p *Processor) GenerateImage(ctx context.Context, t *Turn) error {
	if t.Group {
		return fmt.Errorf("%w: image generation in group chat", provider.ErrCapabilityNotSupported)
	}
	if p.ImageGen == nil {
		return ErrNoImageGenerator
	}

	transcript := Transcript(t.Session.Messages)
	if p.TranscriptTokens > 0 {
		transcript, _ = truncate.New(truncate.FromStart).Truncate(transcript, p.TranscriptTokens)
	}

	data, err := p.ImageGen.Generate(ctx, t.Character, transcript)
	if err != nil {
		return fmt.Errorf("generate image: %w", err)
	}
	if data != "" {
		t.Session.SDData = data
	}
	return nil
}

// ImageGeneratorFunc adapts a function to ImageGenerator.
type ImageGeneratorFunc func(ctx context.Context, c *character.Character, transcript string) (string, error)

// Generate implements ImageGenerator.
func (f ImageGeneratorFunc) Generate(ctx context.Context, c *character.Character, transcript string) (string, error) {
	return f(ctx, c, transcript)
}
