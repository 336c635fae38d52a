package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/parser"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/tokens"
	"github.com/randalmurphal/charkit/truncate"
)

// DefaultEmotionPrompt is the classifier instruction.
const DefaultEmotionPrompt = "From the list below, choose a word that best represents a character's outfit description, action, or emotion in their dialogue. Prioritize selecting words related to outfit first, then action, and lastly emotion. Print out the chosen word."

// Classifier request settings.
const (
	ClassifierTemperature = 0.4
	ClassifierMaxTokens   = 30
)

// Classifier bias weights. A recent label is penalized by at most
// RecentPenalty, decaying by one step per older use.
const (
	LabelBoost    = 10
	RecentPenalty = 20
	MinBias       = -100
)

// One-shot example shown to the classifier.
const (
	exampleDialogue = `"Good morning, Master! Is there anything I can do for you today?"`
	exampleLabel    = "happy"
)

// ClassifierBias builds the token bias for a classification: every token of
// every label gets LabelBoost, then tokens of recent labels are lowered.
// Only the records that survive the next push are penalized, newest by
// RecentPenalty and each older one by RecentPenalty/(EmotionHistorySize-1)
// less. Weights never go below MinBias.
func ClassifierBias(enc tokens.Encoder, labels []string, recent character.EmotionRing) (tokens.BiasMap, error) {
	bias := make(tokens.BiasMap)
	for _, l := range labels {
		ids, err := enc.Encode(l)
		if err != nil {
			return nil, fmt.Errorf("tokenize label %q: %w", l, err)
		}
		for _, id := range ids {
			bias[id] = LabelBoost
		}
	}

	keep := character.EmotionHistorySize - 1
	if len(recent) > keep {
		recent = recent[len(recent)-keep:]
	}
	step := RecentPenalty / keep
	n := len(recent)
	for i, rec := range recent {
		ids, err := enc.Encode(rec.Label)
		if err != nil {
			return nil, fmt.Errorf("tokenize label %q: %w", rec.Label, err)
		}
		modifier := RecentPenalty - (n-(i+1))*step
		for _, id := range ids {
			bias[id] = max(bias[id]-modifier, MinBias)
		}
	}
	return bias, nil
}

// ClassifierMessages builds the classifier prompt. labels are used in the
// given order.
func ClassifierMessages(instruction string, labels []string, reply string) []provider.Message {
	if instruction == "" {
		instruction = DefaultEmotionPrompt
	}
	system := instruction + "\n\n list: " + strings.Join(labels, ", ") + " \noutput only one word."
	return []provider.Message{
		provider.NewTextMessage(provider.RoleSystem, system),
		provider.NewTextMessage(provider.RoleUser, exampleDialogue),
		provider.NewTextMessage(provider.RoleAssistant, exampleLabel),
		provider.NewTextMessage(provider.RoleUser, reply),
	}
}

// Classify asks the classifier for one of c's emotion labels and records
// the match. ok is false when nothing matched; that is not an error.
func (p *Processor) Classify(ctx context.Context, c *character.Character, reply string) (string, bool, error) {
	labels := c.EmotionLabels()
	if len(labels) == 0 {
		return "", false, nil
	}
	if p.Classifier == nil {
		return "", false, fmt.Errorf("%w: no classifier client", provider.ErrCapabilityNotSupported)
	}

	bias, err := ClassifierBias(p.encoder(), labels, c.RecentEmotions)
	if err != nil {
		return "", false, err
	}

	if p.ClassifierInputTokens > 0 {
		reply = truncate.ToTokens(reply, p.ClassifierInputTokens)
	}
	shuffled := append([]string(nil), labels...)
	p.shuffle(shuffled)

	resp, err := p.Classifier.Send(ctx, provider.Request{
		Messages:    ClassifierMessages(p.EmotionPrompt, shuffled, reply),
		Bias:        bias,
		CharacterID: c.ChaID,
		Temperature: provider.Float(ClassifierTemperature),
		MaxTokens:   ClassifierMaxTokens,
		Channel:     provider.ChannelSubmodel,
	})
	if err != nil {
		return "", false, err
	}

	output := resp.Content
	if structured, ok := parser.StructuredLabel(output); ok {
		output = structured
	}
	idx := parser.MatchLabel(output, labels)
	if idx < 0 {
		return "", false, nil
	}

	img := c.EmotionImages[idx]
	c.RecentEmotions.Push(character.EmotionRecord{Label: img.Label, Asset: img.Asset, At: p.now()})
	return img.Label, true, nil
}
