package card

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/charkit/assets"
	"github.com/randalmurphal/charkit/character"
)

// Progress is called after each transferred item of a multi-item stage.
// current counts from 1.
type Progress func(stage string, current, total int)

// Progress stages.
const (
	StageEmotions = "emotions"
	StageAssets   = "assets"
)

// Decoder imports cards into character records.
type Decoder struct {
	// Assets receives the card image and every embedded asset. Required.
	Assets assets.Store

	// Fetcher resolves resource ids in hub mode.
	Fetcher assets.Fetcher

	// Progress is optional.
	Progress Progress
}

// NewDecoder creates a decoder that saves assets into store.
func NewDecoder(store assets.Store) *Decoder {
	return &Decoder{Assets: store}
}

// Import decodes a card. On failure no record is returned, so callers
// commit only a non-nil result. Assets saved before a failure stay in the
// store; they are content addressed and harmless.
func (d *Decoder) Import(ctx context.Context, data []byte, format Format, mode Mode) (*character.Character, error) {
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if IsPNG(data) {
			format = FormatPNG
		}
	}
	if mode == "" {
		mode = ModeNormal
	}

	switch format {
	case FormatPNG:
		return d.importPNG(ctx, data, mode)
	case FormatJSON:
		return d.importJSON(ctx, data, mode)
	default:
		return nil, noData(format, "unknown format")
	}
}

func (d *Decoder) importJSON(ctx context.Context, data []byte, mode Mode) (*character.Character, error) {
	if mode == ModeHub && gjson.GetBytes(data, "card.spec").Exists() {
		return d.importHubDocument(ctx, data)
	}

	switch DetectJSON(data) {
	case KindV2:
		var card CardV2
		if err := json.Unmarshal(data, &card); err != nil {
			return nil, noData(FormatJSON, "malformed v2 card: "+err.Error())
		}
		slog.Debug("card format detected", slog.String("kind", string(KindV2)), slog.String("container", "json"))
		return d.ImportV2(ctx, &card, nil, mode)
	case KindTavern:
		var tc TavernCard
		if err := json.Unmarshal(data, &tc); err != nil {
			return nil, noData(FormatJSON, "malformed legacy card: "+err.Error())
		}
		slog.Debug("card format detected", slog.String("kind", string(KindTavern)), slog.String("container", "json"))
		return convertTavern(&tc, ""), nil
	default:
		return nil, noData(FormatJSON, "no recognized card fields")
	}
}

// importHubDocument handles the {card, img} document served by a hub,
// where img is a resource id.
func (d *Decoder) importHubDocument(ctx context.Context, data []byte) (*character.Character, error) {
	var doc struct {
		Card CardV2 `json:"card"`
		Img  string `json:"img"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, noData(FormatJSON, "malformed hub document: "+err.Error())
	}
	var img []byte
	if doc.Img != "" {
		b, err := d.fetch(ctx, doc.Img)
		if err != nil {
			return nil, err
		}
		img = b
	}
	return d.ImportV2(ctx, &doc.Card, img, ModeHub)
}

func (d *Decoder) importPNG(ctx context.Context, data []byte, mode Mode) (*character.Character, error) {
	fields, err := ReadText(data)
	if err != nil {
		return nil, &ImportError{Format: FormatPNG, Err: fmt.Errorf("%w: %w", ErrNoData, err)}
	}

	var chara []byte
	if raw, ok := fields[KeyChara]; ok {
		chara, err = base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, noData(FormatPNG, "chara payload is not base64")
		}
		if DetectJSON(chara) == KindV2 {
			var card CardV2
			if err := json.Unmarshal(chara, &card); err != nil {
				return nil, noData(FormatPNG, "malformed v2 card: "+err.Error())
			}
			slog.Debug("card format detected", slog.String("kind", string(KindV2)), slog.String("container", "png"))
			return d.ImportV2(ctx, &card, data, mode)
		}
	}

	if raw, ok := fields[KeyRisuAI]; ok {
		payload, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, noData(FormatPNG, "risuai payload is not base64")
		}
		rc, err := decodeRisu(payload)
		if err != nil {
			return nil, err
		}
		slog.Debug("card format detected", slog.String("kind", string(KindRisu)), slog.String("container", "png"))
		return d.importRisu(ctx, rc, data)
	}

	if chara != nil {
		var tc TavernCard
		if err := json.Unmarshal(chara, &tc); err != nil {
			return nil, noData(FormatPNG, "malformed legacy card: "+err.Error())
		}
		handle, err := d.saveImage(ctx, data)
		if err != nil {
			return nil, err
		}
		slog.Debug("card format detected", slog.String("kind", string(KindTavern)), slog.String("container", "png"))
		return convertTavern(&tc, handle), nil
	}

	return nil, noData(FormatPNG, "no card metadata in image")
}

// ImportV2 maps a decoded v2 card. img is the carrying PNG, if any.
func (d *Decoder) ImportV2(ctx context.Context, card *CardV2, img []byte, mode Mode) (*character.Character, error) {
	if card == nil || card.Spec != SpecV2 {
		return nil, noData(FormatJSON, "not a v2 card")
	}
	data := card.Data

	c := character.New(data.Name)
	if img != nil {
		handle, err := d.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		c.Image = handle
	}

	if ext := data.Extensions.RisuAI; ext != nil {
		if err := d.importRisuExtension(ctx, c, ext, mode); err != nil {
			return nil, err
		}
	}

	if book := data.CharacterBook; book != nil {
		c.Lorebook, c.LoreSettings, c.LoreExt = importBook(book)
	}

	c.Description = data.Description
	c.FirstMessage = data.FirstMes
	c.ExampleMessage = data.MesExample
	c.CreatorNotes = data.CreatorNotes
	c.SystemPrompt = data.SystemPrompt
	c.Personality = data.Personality
	c.Scenario = data.Scenario
	c.ReplaceGlobalNote = data.PostHistoryInstructions
	c.Creator = data.Creator
	c.CharacterVersion = string(data.CharacterVersion)
	if data.AlternateGreetings != nil {
		c.AlternateGreetings = data.AlternateGreetings
	}
	if data.Tags != nil {
		c.Tags = data.Tags
	}
	c.AdditionalData = character.AdditionalData{
		Creator:          data.Creator,
		CharacterVersion: string(data.CharacterVersion),
	}
	if len(data.Tags) > 0 {
		c.AdditionalData.Tags = data.Tags
	}
	return c, nil
}

func (d *Decoder) importRisuExtension(ctx context.Context, c *character.Character, ext *RisuExtension, mode Mode) error {
	for i, e := range ext.Emotions {
		if len(e) < 2 {
			continue
		}
		raw, err := d.resolve(ctx, e[1], mode)
		if err != nil {
			return err
		}
		handle, err := d.Assets.Save(ctx, raw, "", "")
		if err != nil {
			return fmt.Errorf("save emotion %q: %w", e[0], err)
		}
		c.EmotionImages = append(c.EmotionImages, character.EmotionImage{Label: e[0], Asset: handle})
		d.progress(StageEmotions, i+1, len(ext.Emotions))
	}

	for i, a := range ext.AdditionalAssets {
		if len(a) < 2 {
			continue
		}
		var filename string
		if len(a) >= 3 {
			filename = a[2]
		}
		raw, err := d.resolve(ctx, a[1], mode)
		if err != nil {
			return err
		}
		handle, err := d.Assets.Save(ctx, raw, "", filename)
		if err != nil {
			return fmt.Errorf("save asset %q: %w", a[0], err)
		}
		c.AdditionalAssets = append(c.AdditionalAssets, character.AdditionalAsset{Label: a[0], Asset: handle, Filename: filename})
		d.progress(StageAssets, i+1, len(ext.AdditionalAssets))
	}
	if n := len(c.EmotionImages) + len(c.AdditionalAssets); n > 0 {
		slog.Debug("card assets transferred", slog.Int("count", n), slog.String("mode", string(mode)))
	}

	for _, b := range ext.Bias {
		c.Bias = append(c.Bias, character.BiasEntry{Text: b.Text, Weight: b.Weight})
	}
	if ext.ViewScreen.Valid() {
		c.ViewScreen = ext.ViewScreen
	}
	if ext.CustomScripts != nil {
		c.CustomScripts = ext.CustomScripts
	}
	if ext.UtilityBot != nil {
		c.UtilityBot = *ext.UtilityBot
	}
	if ext.SDData != nil {
		c.SDData = sdFromPairs(ext.SDData)
	}
	c.BackgroundHTML = ext.BackgroundHTML
	return nil
}

// importBook maps a v2 lorebook. Settings are kept only when all three of
// token_budget, scan_depth and recursive_scanning are present.
func importBook(book *CharacterBook) ([]character.LoreEntry, *character.LoreSettings, map[string]any) {
	entries := make([]character.LoreEntry, 0, len(book.Entries))
	for _, b := range book.Entries {
		ext := make(map[string]any, len(b.Extensions)+1)
		maps.Copy(ext, b.Extensions)
		if b.CaseSensitive != nil {
			ext[character.ExtCaseSensitive] = *b.CaseSensitive
		}
		if len(ext) == 0 {
			ext = nil
		}

		comment := ""
		switch {
		case b.Name != nil:
			comment = *b.Name
		case b.Comment != nil:
			comment = *b.Comment
		}

		entries = append(entries, character.LoreEntry{
			Key:               character.JoinKeys(b.Keys),
			SecondKey:         character.JoinKeys(b.SecondaryKeys),
			InsertOrder:       b.InsertionOrder,
			Comment:           comment,
			Content:           b.Content,
			Mode:              character.LoreModeNormal,
			AlwaysActive:      b.Constant != nil && *b.Constant,
			Selective:         b.Selective != nil && *b.Selective,
			Extensions:        ext,
			ActivationPercent: activationPercent(b.Extensions),
		})
	}

	var settings *character.LoreSettings
	if book.TokenBudget != nil && book.ScanDepth != nil && book.RecursiveScanning != nil {
		settings = &character.LoreSettings{
			TokenBudget:       *book.TokenBudget,
			ScanDepth:         *book.ScanDepth,
			RecursiveScanning: *book.RecursiveScanning,
		}
	}

	var loreExt map[string]any
	if len(book.Extensions) > 0 {
		loreExt = book.Extensions
	}
	return entries, settings, loreExt
}

func activationPercent(ext map[string]any) *float64 {
	if v, ok := ext[character.ExtActivationPercent].(float64); ok {
		return &v
	}
	return nil
}

func (d *Decoder) importRisu(ctx context.Context, rc *risuCharacter, img []byte) (*character.Character, error) {
	c := rc.toCharacter()

	for i, e := range rc.EmotionImages {
		handle, err := d.Assets.Save(ctx, e.Data, "", "")
		if err != nil {
			return nil, fmt.Errorf("save emotion %q: %w", e.Label, err)
		}
		c.EmotionImages = append(c.EmotionImages, character.EmotionImage{Label: e.Label, Asset: handle})
		d.progress(StageEmotions, i+1, len(rc.EmotionImages))
	}
	for i, a := range rc.AdditionalAssets {
		handle, err := d.Assets.Save(ctx, a.Data, "", a.Filename)
		if err != nil {
			return nil, fmt.Errorf("save asset %q: %w", a.Label, err)
		}
		c.AdditionalAssets = append(c.AdditionalAssets, character.AdditionalAsset{Label: a.Label, Asset: handle, Filename: a.Filename})
		d.progress(StageAssets, i+1, len(rc.AdditionalAssets))
	}

	handle, err := d.saveImage(ctx, img)
	if err != nil {
		return nil, err
	}
	c.Image = handle
	return c, nil
}

// convertTavern maps a legacy card. Missing fields get fixed defaults.
func convertTavern(tc *TavernCard, image string) *character.Character {
	c := character.New(firstNonEmpty(tc.Name, tc.CharName, "unknown name"))
	c.Image = image
	c.FirstMessage = firstNonEmpty(tc.FirstMes, tc.CharGreeting, "unknown first message")
	c.Description = firstNonEmpty(tc.Description, tc.CharPersona)
	c.ExampleMessage = tc.MesExample
	c.Personality = tc.Personality
	c.Scenario = tc.Scenario
	return c
}

// resolve returns asset bytes: base64 in normal mode, a fetched resource
// in hub mode.
func (d *Decoder) resolve(ctx context.Context, payload string, mode Mode) ([]byte, error) {
	if mode == ModeHub {
		return d.fetch(ctx, payload)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, noData(FormatJSON, "asset payload is not base64")
	}
	return raw, nil
}

func (d *Decoder) fetch(ctx context.Context, id string) ([]byte, error) {
	if d.Fetcher == nil {
		return nil, ErrNoFetcher
	}
	return d.Fetcher.Fetch(ctx, id)
}

func (d *Decoder) saveImage(ctx context.Context, img []byte) (string, error) {
	if IsPNG(img) {
		stripped, err := StripText(img)
		if err != nil {
			return "", noData(FormatPNG, err.Error())
		}
		img = stripped
	}
	handle, err := d.Assets.Save(ctx, img, "", "")
	if err != nil {
		return "", fmt.Errorf("save card image: %w", err)
	}
	return handle, nil
}

func (d *Decoder) progress(stage string, current, total int) {
	if d.Progress != nil {
		d.Progress(stage, current, total)
	}
}
