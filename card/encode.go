package card

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"time"

	"github.com/randalmurphal/charkit/assets"
	"github.com/randalmurphal/charkit/character"
)

// Encoder exports character records as cards.
type Encoder struct {
	// Assets resolves image and asset handles. Required.
	Assets assets.Store

	// Progress is optional.
	Progress Progress

	// Now stamps legacy exports. Defaults to time.Now.
	Now func() time.Time
}

// NewEncoder creates an encoder reading assets from store.
func NewEncoder(store assets.Store) *Encoder {
	return &Encoder{Assets: store}
}

// BuildV2 maps a character onto a v2 card. Asset fields hold the
// character's handles; ExportV2JSON replaces them with embedded bytes.
func BuildV2(c *character.Character) *CardV2 {
	entries := make([]BookEntry, 0, len(c.Lorebook))
	for _, l := range c.Lorebook {
		ext := make(map[string]any, len(l.Extensions)+1)
		maps.Copy(ext, l.Extensions)
		if l.ActivationPercent != nil {
			ext[character.ExtActivationPercent] = *l.ActivationPercent
		} else {
			delete(ext, character.ExtActivationPercent)
		}

		e := BookEntry{
			Keys:           character.SplitKeys(l.Key),
			Content:        l.Content,
			Extensions:     ext,
			Enabled:        true,
			InsertionOrder: l.InsertOrder,
			Constant:       ptr(l.AlwaysActive),
			Selective:      ptr(l.Selective),
			Name:           ptr(l.Comment),
			Comment:        ptr(l.Comment),
			SecondaryKeys:  character.SplitKeys(l.SecondKey),
		}
		if cs, ok := ext[character.ExtCaseSensitive].(bool); ok {
			e.CaseSensitive = ptr(cs)
		}
		entries = append(entries, e)
	}

	book := &CharacterBook{
		Extensions: c.LoreExt,
		Entries:    entries,
	}
	if book.Extensions == nil {
		book.Extensions = map[string]any{}
	}
	if s := c.LoreSettings; s != nil {
		book.ScanDepth = ptr(s.ScanDepth)
		book.TokenBudget = ptr(s.TokenBudget)
		book.RecursiveScanning = ptr(s.RecursiveScanning)
	}

	ext := &RisuExtension{
		ViewScreen:     c.ViewScreen,
		CustomScripts:  c.CustomScripts,
		UtilityBot:     ptr(c.UtilityBot),
		SDData:         sdToPairs(c.SDData),
		BackgroundHTML: c.BackgroundHTML,
	}
	for _, e := range c.EmotionImages {
		ext.Emotions = append(ext.Emotions, []string{e.Label, e.Asset})
	}
	for _, a := range c.AdditionalAssets {
		ext.AdditionalAssets = append(ext.AdditionalAssets, []string{a.Label, a.Asset, a.Filename})
	}
	for _, b := range c.Bias {
		ext.Bias = append(ext.Bias, BiasPair{Text: b.Text, Weight: b.Weight})
	}

	return &CardV2{
		Spec:        SpecV2,
		SpecVersion: SpecVersion,
		Data: DataV2{
			Name:                    c.Name,
			Description:             c.Description,
			Personality:             c.Personality,
			Scenario:                c.Scenario,
			FirstMes:                c.FirstMessage,
			MesExample:              c.ExampleMessage,
			CreatorNotes:            c.CreatorNotes,
			SystemPrompt:            c.SystemPrompt,
			PostHistoryInstructions: c.ReplaceGlobalNote,
			AlternateGreetings:      nonNil(c.AlternateGreetings),
			CharacterBook:           book,
			Tags:                    nonNil(c.Tags),
			Creator:                 firstNonEmpty(c.Creator, c.AdditionalData.Creator),
			CharacterVersion:        FlexString(firstNonEmpty(c.CharacterVersion, c.AdditionalData.CharacterVersion)),
			Extensions:              ExtensionsV2{RisuAI: ext},
		},
	}
}

// ExportV2JSON returns the v2 card JSON with every emotion and additional
// asset embedded as base64. Images are re-encoded to PNG where possible.
func (e *Encoder) ExportV2JSON(ctx context.Context, c *character.Character) ([]byte, error) {
	card := BuildV2(c)
	ext := card.Data.Extensions.RisuAI

	for i, em := range ext.Emotions {
		b, err := e.readCanonical(ctx, em[1])
		if err != nil {
			return nil, fmt.Errorf("emotion %q: %w", em[0], err)
		}
		ext.Emotions[i][1] = base64.StdEncoding.EncodeToString(b)
		e.progress(StageEmotions, i+1, len(ext.Emotions))
	}
	for i, a := range ext.AdditionalAssets {
		b, err := e.readCanonical(ctx, a[1])
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", a[0], err)
		}
		ext.AdditionalAssets[i][1] = base64.StdEncoding.EncodeToString(b)
		e.progress(StageAssets, i+1, len(ext.AdditionalAssets))
	}

	return json.Marshal(card)
}

// ExportV2 returns a PNG with the card embedded under the chara key when the
// character has an image, and the bare card JSON otherwise.
func (e *Encoder) ExportV2(ctx context.Context, c *character.Character) ([]byte, error) {
	js, err := e.ExportV2JSON(ctx, c)
	if err != nil {
		return nil, err
	}
	if c.Image == "" {
		return js, nil
	}
	img, err := e.readCanonical(ctx, c.Image)
	if err != nil {
		return nil, fmt.Errorf("card image: %w", err)
	}
	return WriteText(img, map[string]string{
		KeyChara: base64.StdEncoding.EncodeToString(js),
	})
}

// ExportRisu returns the legacy PNG card: a tavern summary under chara and
// the full msgpack record under risuai. The character must have an image.
func (e *Encoder) ExportRisu(ctx context.Context, c *character.Character) ([]byte, error) {
	if c.Image == "" {
		return nil, ErrImageRequired
	}
	img, err := e.readCanonical(ctx, c.Image)
	if err != nil {
		return nil, fmt.Errorf("card image: %w", err)
	}

	rc := fromCharacter(c)
	for i, em := range c.EmotionImages {
		b, err := e.Assets.Read(ctx, em.Asset)
		if err != nil {
			return nil, fmt.Errorf("emotion %q: %w", em.Label, err)
		}
		rc.EmotionImages = append(rc.EmotionImages, risuEmotion{Label: em.Label, Data: b})
		e.progress(StageEmotions, i+1, len(c.EmotionImages))
	}
	for i, a := range c.AdditionalAssets {
		b, err := e.Assets.Read(ctx, a.Asset)
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", a.Label, err)
		}
		rc.AdditionalAssets = append(rc.AdditionalAssets, risuAsset{Label: a.Label, Data: b, Filename: a.Filename})
		e.progress(StageAssets, i+1, len(c.AdditionalAssets))
	}

	payload, err := encodeRisu(rc)
	if err != nil {
		return nil, fmt.Errorf("encode risuai payload: %w", err)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	tavern, err := json.Marshal(TavernCard{
		Avatar:        "none",
		CreateDate:    strconv.FormatInt(now().UnixMilli(), 10),
		Description:   c.Description,
		FirstMes:      c.FirstMessage,
		MesExample:    firstNonEmpty(c.ExampleMessage, "<START>"),
		Name:          c.Name,
		Personality:   c.Personality,
		Scenario:      c.Scenario,
		Talkativeness: "0.5",
	})
	if err != nil {
		return nil, fmt.Errorf("encode tavern card: %w", err)
	}

	return WriteText(img, map[string]string{
		KeyChara:  base64.StdEncoding.EncodeToString(tavern),
		KeyRisuAI: base64.StdEncoding.EncodeToString(payload),
	})
}

// readCanonical reads an asset and re-encodes it to PNG. Bytes that are not
// a decodable image are returned unchanged.
func (e *Encoder) readCanonical(ctx context.Context, handle string) ([]byte, error) {
	raw, err := e.Assets.Read(ctx, handle)
	if err != nil {
		return nil, err
	}
	out, err := Canonicalize(raw)
	if errors.Is(err, ErrUnsupportedImage) {
		slog.Debug("asset kept as is", slog.String("handle", handle), slog.Any("error", err))
		return raw, nil
	}
	return out, err
}

func (e *Encoder) progress(stage string, current, total int) {
	if e.Progress != nil {
		e.Progress(stage, current, total)
	}
}

var unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*.,]`)

// ExportFilename returns the download name for an exported card.
func ExportFilename(name string) string {
	return unsafeFilename.ReplaceAllString(name, "") + "_export.png"
}

func ptr[T any](v T) *T {
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
