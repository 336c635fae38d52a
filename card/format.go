package card

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/randalmurphal/charkit/character"
)

// Format is the container of an imported card.
type Format string

// Card containers.
const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatPNG  Format = "png"
)

// Mode selects how v2 asset payloads are resolved.
type Mode string

// Import modes. Normal cards carry assets inline as base64; hub cards carry
// resource ids resolved through a Fetcher.
const (
	ModeNormal Mode = "normal"
	ModeHub    Mode = "hub"
)

// Kind is the schema of a card payload.
type Kind string

// Card schemas.
const (
	KindUnknown Kind = ""
	KindV2      Kind = "chara_card_v2"
	KindTavern  Kind = "tavern"
	KindRisu    Kind = "risu"
)

// SpecV2 and SpecVersion tag v2 cards.
const (
	SpecV2      = "chara_card_v2"
	SpecVersion = "2.0"
)

// RisuPayloadType tags the legacy msgpack payload.
const RisuPayloadType = 101

// DetectJSON classifies a JSON card without decoding it fully. The v2 tag
// is checked before the legacy aliases, so a card carrying both is v2.
func DetectJSON(data []byte) Kind {
	if !gjson.ValidBytes(data) {
		return KindUnknown
	}
	if gjson.GetBytes(data, "spec").String() == SpecV2 {
		return KindV2
	}
	has := func(paths ...string) bool {
		for _, p := range paths {
			if r := gjson.GetBytes(data, p); r.Exists() && r.String() != "" {
				return true
			}
		}
		return false
	}
	if has("char_name", "name") && has("char_persona", "description") && has("char_greeting", "first_mes") {
		return KindTavern
	}
	return KindUnknown
}

// CardV2 is a spec v2 character card.
type CardV2 struct {
	Spec        string `json:"spec" jsonschema:"enum=chara_card_v2"`
	SpecVersion string `json:"spec_version" jsonschema:"enum=2.0"`
	Data        DataV2 `json:"data"`
}

// DataV2 is the payload of a v2 card.
type DataV2 struct {
	Name                    string         `json:"name"`
	Description             string         `json:"description"`
	Personality             string         `json:"personality"`
	Scenario                string         `json:"scenario"`
	FirstMes                string         `json:"first_mes"`
	MesExample              string         `json:"mes_example"`
	CreatorNotes            string         `json:"creator_notes"`
	SystemPrompt            string         `json:"system_prompt"`
	PostHistoryInstructions string         `json:"post_history_instructions"`
	AlternateGreetings      []string       `json:"alternate_greetings"`
	CharacterBook           *CharacterBook `json:"character_book,omitempty"`
	Tags                    []string       `json:"tags"`
	Creator                 string         `json:"creator"`
	CharacterVersion        FlexString     `json:"character_version"`
	Extensions              ExtensionsV2   `json:"extensions"`
}

// ExtensionsV2 is the extension namespace of a v2 card. Only the risuai key
// is interpreted.
type ExtensionsV2 struct {
	RisuAI *RisuExtension `json:"risuai,omitempty"`
}

// RisuExtension holds the vendor fields of a v2 card. Asset payloads are
// base64 bytes in normal cards and resource ids in hub cards.
type RisuExtension struct {
	Emotions         [][]string               `json:"emotions,omitempty"`
	Bias             []BiasPair               `json:"bias,omitempty"`
	ViewScreen       character.ViewScreen     `json:"viewScreen,omitempty" jsonschema:"enum=none,enum=emotion,enum=imggen"`
	CustomScripts    []character.CustomScript `json:"customScripts,omitempty"`
	UtilityBot       *bool                    `json:"utilityBot,omitempty"`
	SDData           [][]string               `json:"sdData,omitempty"`
	AdditionalAssets [][]string               `json:"additionalAssets,omitempty"`
	BackgroundHTML   string                   `json:"backgroundHTML,omitempty"`
}

// CharacterBook is the v2 lorebook.
type CharacterBook struct {
	Name              string         `json:"name,omitempty"`
	Description       string         `json:"description,omitempty"`
	ScanDepth         *int           `json:"scan_depth,omitempty"`
	TokenBudget       *int           `json:"token_budget,omitempty"`
	RecursiveScanning *bool          `json:"recursive_scanning,omitempty"`
	Extensions        map[string]any `json:"extensions"`
	Entries           []BookEntry    `json:"entries"`
}

// BookEntry is one v2 lorebook entry.
type BookEntry struct {
	Keys           []string       `json:"keys"`
	Content        string         `json:"content"`
	Extensions     map[string]any `json:"extensions"`
	Enabled        bool           `json:"enabled"`
	InsertionOrder int            `json:"insertion_order"`
	Name           *string        `json:"name,omitempty"`
	Priority       *int           `json:"priority,omitempty"`
	ID             *int           `json:"id,omitempty"`
	Comment        *string        `json:"comment,omitempty"`
	Selective      *bool          `json:"selective,omitempty"`
	SecondaryKeys  []string       `json:"secondary_keys,omitempty"`
	Constant       *bool          `json:"constant,omitempty"`
	Position       string         `json:"position,omitempty" jsonschema:"enum=before_char,enum=after_char"`
	CaseSensitive  *bool          `json:"case_sensitive,omitempty"`
}

// BiasPair is a [text, weight] tuple.
type BiasPair struct {
	Text   string
	Weight int
}

// MarshalJSON encodes the pair as a two element array.
func (p BiasPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Text, p.Weight})
}

// UnmarshalJSON decodes a [text, weight] array.
func (p *BiasPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("bias pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Text); err != nil {
		return fmt.Errorf("bias pair text: %w", err)
	}
	var w float64
	if err := json.Unmarshal(raw[1], &w); err != nil {
		return fmt.Errorf("bias pair weight: %w", err)
	}
	p.Weight = int(w)
	return nil
}

// FlexString accepts a JSON string or number. Card tools disagree on the
// type of character_version.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	switch r.Type {
	case gjson.Null:
		*s = ""
	case gjson.String:
		*s = FlexString(r.String())
	case gjson.Number:
		*s = FlexString(r.Raw)
	default:
		*s = FlexString(r.String())
	}
	return nil
}

// TavernCard is the legacy flat card. The char_* aliases come from older
// exporters.
type TavernCard struct {
	Name         string `json:"name,omitempty"`
	CharName     string `json:"char_name,omitempty"`
	Description  string `json:"description,omitempty"`
	CharPersona  string `json:"char_persona,omitempty"`
	FirstMes     string `json:"first_mes,omitempty"`
	CharGreeting string `json:"char_greeting,omitempty"`
	Personality  string `json:"personality,omitempty"`
	Scenario     string `json:"scenario,omitempty"`
	MesExample   string `json:"mes_example,omitempty"`

	Avatar        string `json:"avatar,omitempty"`
	Chat          string `json:"chat,omitempty"`
	CreateDate    string `json:"create_date,omitempty"`
	Talkativeness string `json:"talkativeness,omitempty"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// JSONSchema describes the pair as a two element array.
func (BiasPair) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: "[text, weight]",
		PrefixItems: []*jsonschema.Schema{{Type: "string"}, {Type: "integer"}},
	}
}
