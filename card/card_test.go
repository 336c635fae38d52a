package card

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/charkit/assets"
	"github.com/randalmurphal/charkit/character"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestPNGText(t *testing.T) {
	base := testPNG(t)

	withText, err := WriteText(base, map[string]string{"chara": "abc", "risuai": "def"})
	require.NoError(t, err)

	fields, err := ReadText(withText)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chara": "abc", "risuai": "def"}, fields)

	// Rewriting replaces rather than appends.
	again, err := WriteText(withText, map[string]string{"chara": "xyz"})
	require.NoError(t, err)
	fields, err = ReadText(again)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chara": "xyz"}, fields)

	stripped, err := StripText(again)
	require.NoError(t, err)
	fields, err = ReadText(stripped)
	require.NoError(t, err)
	assert.Empty(t, fields)

	_, err = png.Decode(bytes.NewReader(again))
	assert.NoError(t, err, "output stays a valid png")

	_, err = ReadText([]byte("not a png"))
	assert.ErrorIs(t, err, ErrInvalidPNG)
	_, err = ReadText(base[:len(base)-6])
	assert.ErrorIs(t, err, ErrInvalidPNG)
}

func TestDetectJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Kind
	}{
		{"v2", `{"spec":"chara_card_v2","data":{}}`, KindV2},
		{"v2 wins over aliases", `{"spec":"chara_card_v2","name":"a","description":"b","first_mes":"c"}`, KindV2},
		{"tavern", `{"name":"a","description":"b","first_mes":"c"}`, KindTavern},
		{"tavern aliases", `{"char_name":"a","char_persona":"b","char_greeting":"c"}`, KindTavern},
		{"missing greeting", `{"name":"a","description":"b"}`, KindUnknown},
		{"empty persona", `{"name":"a","description":"","first_mes":"c"}`, KindUnknown},
		{"null greeting", `{"name":"a","description":"b","first_mes":null}`, KindUnknown},
		{"malformed", `{"name":`, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectJSON([]byte(tt.data)))
		})
	}
}

func TestImport_Tavern(t *testing.T) {
	dec := NewDecoder(assets.NewMemoryStore())

	c, err := dec.Import(context.Background(),
		[]byte(`{"char_name":"Rin","char_persona":"a fox","char_greeting":"hey","scenario":"forest"}`),
		FormatAuto, ModeNormal)
	require.NoError(t, err)

	assert.Equal(t, "Rin", c.Name)
	assert.Equal(t, "a fox", c.Description)
	assert.Equal(t, "hey", c.FirstMessage)
	assert.Equal(t, "forest", c.Scenario)
	assert.NotEmpty(t, c.ChaID)
	assert.Equal(t, -1, c.FirstMsgIndex)
	assert.Equal(t, character.ViewScreenNone, c.ViewScreen)
	assert.Equal(t, character.DefaultSDData(), c.SDData)
	require.Len(t, c.Chats, 1)
	assert.Empty(t, c.Chats[0].Messages)
}

func TestImport_NoData(t *testing.T) {
	dec := NewDecoder(assets.NewMemoryStore())
	ctx := context.Background()

	inputs := map[string][]byte{
		"malformed":      []byte(`{"name":`),
		"unknown fields": []byte(`{"foo":"bar"}`),
		"png no text":    testPNG(t),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			c, err := dec.Import(ctx, data, FormatAuto, ModeNormal)
			assert.Nil(t, c)
			assert.True(t, IsNoData(err), "got %v", err)

			var ie *ImportError
			assert.True(t, errors.As(err, &ie))
		})
	}
}

func fullCharacter() *character.Character {
	pct := 40.0
	c := character.New("Mira")
	c.Description = "A librarian"
	c.Personality = "quiet"
	c.Scenario = "the archive"
	c.SystemPrompt = "stay in character"
	c.ExampleMessage = "<START>\n{{char}}: hello"
	c.FirstMessage = "Welcome."
	c.AlternateGreetings = []string{"Hi.", "Oh, you again."}
	c.CreatorNotes = "notes"
	c.ReplaceGlobalNote = "{{original}} and more"
	c.Tags = []string{"fantasy"}
	c.Creator = "someone"
	c.CharacterVersion = "3"
	c.AdditionalData = character.AdditionalData{Tags: []string{"fantasy"}, Creator: "someone", CharacterVersion: "3"}
	c.UtilityBot = true
	c.ViewScreen = character.ViewScreenEmotion
	c.Bias = []character.BiasEntry{{Text: "sorry", Weight: -20}}
	c.CustomScripts = []character.CustomScript{{Comment: "c", In: "a", Out: "b", Type: "editoutput"}}
	c.SDData = []character.SDSetting{{Key: "always", Value: "1girl"}}
	c.BackgroundHTML = "<div></div>"
	c.Lorebook = []character.LoreEntry{
		{
			Key:          "archive, books",
			SecondKey:    "dust",
			InsertOrder:  10,
			Comment:      "place",
			Content:      "The archive is old.",
			Mode:         "normal",
			Selective:    true,
			AlwaysActive: false,
			Extensions: map[string]any{
				character.ExtCaseSensitive:     true,
				character.ExtActivationPercent: 40.0,
				"other":                        "kept",
			},
			ActivationPercent: &pct,
		},
		{
			Key:          "mira",
			InsertOrder:  5,
			Content:      "Mira likes tea.",
			Mode:         "normal",
			AlwaysActive: true,
			Extensions:   map[string]any{character.ExtCaseSensitive: false},
		},
	}
	c.LoreSettings = &character.LoreSettings{TokenBudget: 500, ScanDepth: 3, RecursiveScanning: true}
	c.LoreExt = map[string]any{"k": "v"}
	return c
}

func TestV2_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	orig := fullCharacter()

	data, err := NewEncoder(store).ExportV2(ctx, orig)
	require.NoError(t, err)
	assert.Equal(t, KindV2, DetectJSON(data), "no image exports bare json")

	got, err := NewDecoder(store).Import(ctx, data, FormatAuto, ModeNormal)
	require.NoError(t, err)

	assert.NotEqual(t, orig.ChaID, got.ChaID)
	want := *orig
	want.ChaID = got.ChaID
	want.Chats = got.Chats
	assert.Equal(t, want, *got)
}

func TestV2_RoundTripPlainRecord(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	orig := character.New("Ann")
	orig.AddLore(character.LoreEntry{Key: "sun,moon", SecondKey: "star", Content: "The sky."})

	data, err := NewEncoder(store).ExportV2(ctx, orig)
	require.NoError(t, err)
	got, err := NewDecoder(store).Import(ctx, data, FormatAuto, ModeNormal)
	require.NoError(t, err)

	require.Len(t, got.Lorebook, 1)
	assert.Equal(t, "star", got.Lorebook[0].SecondKey, "secondary keys survive on non-selective entries")
	assert.Nil(t, got.Lorebook[0].Extensions)

	want := *orig
	want.ChaID = got.ChaID
	want.Chats = got.Chats
	assert.Equal(t, want, *got)
}

func TestV2_LoreSettingsAllOrNothing(t *testing.T) {
	tests := []struct {
		name string
		book string
		want *character.LoreSettings
	}{
		{"all three", `"scan_depth":4,"token_budget":100,"recursive_scanning":false`, &character.LoreSettings{ScanDepth: 4, TokenBudget: 100}},
		{"two of three", `"scan_depth":4,"token_budget":100`, nil},
		{"one", `"recursive_scanning":true`, nil},
		{"none", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sep := ""
			if tt.book != "" {
				sep = ","
			}
			doc := `{"spec":"chara_card_v2","spec_version":"2.0","data":{"name":"A","character_book":{` +
				tt.book + sep + `"extensions":{},"entries":[{"keys":["x","y"],"content":"c","extensions":{},"enabled":true,"insertion_order":1}]}}}`

			c, err := NewDecoder(assets.NewMemoryStore()).Import(context.Background(), []byte(doc), FormatJSON, ModeNormal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.LoreSettings)

			require.Len(t, c.Lorebook, 1)
			e := c.Lorebook[0]
			assert.Equal(t, "x, y", e.Key)
			assert.False(t, e.Selective)
			assert.False(t, e.AlwaysActive)
			assert.False(t, e.CaseSensitive())
			assert.Nil(t, e.ActivationPercent)
		})
	}
}

func TestV2_InlineAssets(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	img := testPNG(t)
	b64 := base64.StdEncoding.EncodeToString(img)

	doc, err := json.Marshal(map[string]any{
		"spec":         SpecV2,
		"spec_version": SpecVersion,
		"data": map[string]any{
			"name":              "A",
			"character_version": 2,
			"extensions": map[string]any{
				"risuai": map[string]any{
					"emotions":         [][]string{{"happy", b64}, {"sad", b64}},
					"additionalAssets": [][]string{{"bg", b64, "bg.png"}},
					"bias":             []any{[]any{"hello", 5}},
					"viewScreen":       "emotion",
				},
			},
		},
	})
	require.NoError(t, err)

	var calls []string
	dec := NewDecoder(store)
	dec.Progress = func(stage string, current, total int) {
		calls = append(calls, fmt.Sprintf("%s:%d/%d", stage, current, total))
	}

	c, err := dec.Import(ctx, doc, FormatJSON, ModeNormal)
	require.NoError(t, err)

	require.Len(t, c.EmotionImages, 2)
	assert.Equal(t, "happy", c.EmotionImages[0].Label)
	stored, err := store.Read(ctx, c.EmotionImages[0].Asset)
	require.NoError(t, err)
	assert.Equal(t, img, stored)

	require.Len(t, c.AdditionalAssets, 1)
	assert.Equal(t, "bg.png", c.AdditionalAssets[0].Filename)
	assert.Equal(t, []character.BiasEntry{{Text: "hello", Weight: 5}}, c.Bias)
	assert.Equal(t, character.ViewScreenEmotion, c.ViewScreen)
	assert.Equal(t, "2", c.CharacterVersion)
	assert.Equal(t, []string{"emotions:1/2", "emotions:2/2", "assets:1/1"}, calls)
}

func TestV2_PNGCarrier(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	orig := fullCharacter()

	handle, err := store.Save(ctx, testJPEG(t), "", "card.jpg")
	require.NoError(t, err)
	orig.Image = handle

	data, err := NewEncoder(store).ExportV2(ctx, orig)
	require.NoError(t, err)
	require.True(t, IsPNG(data), "jpeg image re-encoded to png")

	got, err := NewDecoder(store).Import(ctx, data, FormatAuto, ModeNormal)
	require.NoError(t, err)
	assert.Equal(t, orig.Name, got.Name)
	assert.Equal(t, orig.Lorebook, got.Lorebook)

	saved, err := store.Read(ctx, got.Image)
	require.NoError(t, err)
	fields, err := ReadText(saved)
	require.NoError(t, err)
	assert.Empty(t, fields, "stored image has card metadata stripped")
}

func TestRisu_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	img := testPNG(t)

	orig := fullCharacter()
	var err error
	orig.Image, err = store.Save(ctx, img, "", "")
	require.NoError(t, err)
	sprite, err := store.Save(ctx, []byte("sprite"), "", "")
	require.NoError(t, err)
	orig.EmotionImages = []character.EmotionImage{{Label: "happy", Asset: sprite}}
	orig.Chats[0].Messages = []character.Message{{Role: character.RoleUser, Data: "hi"}}

	enc := NewEncoder(store)
	data, err := enc.ExportRisu(ctx, orig)
	require.NoError(t, err)

	fields, err := ReadText(data)
	require.NoError(t, err)
	assert.Contains(t, fields, KeyChara)
	assert.Contains(t, fields, KeyRisuAI)

	got, err := NewDecoder(store).Import(ctx, data, FormatPNG, ModeNormal)
	require.NoError(t, err)

	assert.Equal(t, orig.Name, got.Name)
	assert.Equal(t, orig.Description, got.Description)
	assert.Equal(t, orig.Bias, got.Bias)
	assert.Equal(t, orig.CustomScripts, got.CustomScripts)
	assert.Equal(t, orig.LoreSettings, got.LoreSettings)
	assert.Equal(t, orig.ViewScreen, got.ViewScreen)
	assert.Equal(t, orig.EmotionImages, got.EmotionImages, "same bytes, same handle")
	require.Len(t, got.Chats, 1)
	assert.Empty(t, got.Chats[0].Messages, "chats are not exported")
	assert.NotEqual(t, orig.ChaID, got.ChaID)
}

func TestRisu_RequiresImage(t *testing.T) {
	_, err := NewEncoder(assets.NewMemoryStore()).ExportRisu(context.Background(), character.New("x"))
	assert.ErrorIs(t, err, ErrImageRequired)
}

func TestImport_Hub(t *testing.T) {
	ctx := context.Background()
	img := testPNG(t)
	resources := map[string][]byte{"img-1": img, "emo-1": []byte("emo")}

	fetcher := assets.FetcherFunc(func(_ context.Context, id string) ([]byte, error) {
		b, ok := resources[id]
		if !ok {
			return nil, &assets.FetchError{URL: "hub/" + id, Status: 404}
		}
		return b, nil
	})

	doc := `{"img":"img-1","card":{"spec":"chara_card_v2","spec_version":"2.0","data":{"name":"Hubby",` +
		`"extensions":{"risuai":{"emotions":[["happy","emo-1"]]}}}}}`

	dec := NewDecoder(assets.NewMemoryStore())
	dec.Fetcher = fetcher
	c, err := dec.Import(ctx, []byte(doc), FormatJSON, ModeHub)
	require.NoError(t, err)
	assert.Equal(t, "Hubby", c.Name)
	assert.NotEmpty(t, c.Image)
	require.Len(t, c.EmotionImages, 1)

	missing := `{"spec":"chara_card_v2","data":{"name":"A","extensions":{"risuai":{"emotions":[["sad","nope"]]}}}}`
	c, err = dec.Import(ctx, []byte(missing), FormatJSON, ModeHub)
	assert.Nil(t, c)
	assert.True(t, assets.IsFetchError(err))

	dec.Fetcher = nil
	_, err = dec.Import(ctx, []byte(doc), FormatJSON, ModeHub)
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestCanonicalize(t *testing.T) {
	p := testPNG(t)
	out, err := Canonicalize(p)
	require.NoError(t, err)
	assert.Equal(t, p, out)

	out, err = Canonicalize(testJPEG(t))
	require.NoError(t, err)
	assert.True(t, IsPNG(out))

	_, err = Canonicalize([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestSchema(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"spec_version"`)
	assert.Contains(t, string(data), `"chara_card_v2"`)
	assert.Contains(t, string(data), `"risuai"`)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "Ms Kitty_export.png", ExportFilename("Ms. Kitty"))
	assert.Equal(t, "abc_export.png", ExportFilename(`a/b:c?`))
}
