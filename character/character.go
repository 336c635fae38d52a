package character

import (
	"github.com/google/uuid"
)

// ViewScreen selects the auxiliary behavior run after each reply.
type ViewScreen string

// View screen modes.
const (
	ViewScreenNone    ViewScreen = "none"
	ViewScreenEmotion ViewScreen = "emotion"
	ViewScreenImgGen  ViewScreen = "imggen"
)

// Valid reports whether v is a known mode.
func (v ViewScreen) Valid() bool {
	switch v {
	case ViewScreenNone, ViewScreenEmotion, ViewScreenImgGen:
		return true
	}
	return false
}

// EmotionImage pairs an emotion label with an asset handle.
// Labels are not required to be unique.
type EmotionImage struct {
	Label string `json:"label"`
	Asset string `json:"asset"`
}

// AdditionalAsset is an extra asset shipped with a card.
type AdditionalAsset struct {
	Label    string `json:"label"`
	Asset    string `json:"asset"`
	Filename string `json:"filename,omitempty"`
}

// BiasEntry adjusts the likelihood of every token of Text by Weight.
type BiasEntry struct {
	Text   string `json:"text"`
	Weight int    `json:"weight"`
}

// CustomScript is a regex rewrite applied to text in one phase.
type CustomScript struct {
	Comment string `json:"comment" msgpack:"comment"`
	In      string `json:"in" msgpack:"in"`
	Out     string `json:"out" msgpack:"out"`
	// Type is the phase the script runs in, e.g. "editoutput".
	Type string `json:"type" msgpack:"type"`
}

// SDSetting is one image-generation prompt setting (key, value).
type SDSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DefaultSDData returns the default image-generation settings for new characters.
func DefaultSDData() []SDSetting {
	return []SDSetting{
		{Key: "always", Value: "solo, 1girl"},
		{Key: "negative", Value: ""},
		{Key: "|character's appearance", Value: ""},
		{Key: "current situation", Value: ""},
		{Key: "$character's pose", Value: ""},
		{Key: "$character's emotion", Value: ""},
		{Key: "current location", Value: ""},
	}
}

// AdditionalData holds card metadata carried through round trips.
type AdditionalData struct {
	Tags             []string `json:"tag,omitempty"`
	Creator          string   `json:"creator,omitempty"`
	CharacterVersion string   `json:"character_version,omitempty"`
}

// Character is a single character definition together with its chat sessions.
type Character struct {
	ChaID string `json:"cha_id"`
	Name  string `json:"name"`
	// Image is the asset handle of the card image, if any.
	Image string `json:"image,omitempty"`

	Description        string   `json:"description"`
	Personality        string   `json:"personality"`
	Scenario           string   `json:"scenario"`
	SystemPrompt       string   `json:"system_prompt"`
	ExampleMessage     string   `json:"example_message"`
	FirstMessage       string   `json:"first_message"`
	AlternateGreetings []string `json:"alternate_greetings"`
	// FirstMsgIndex selects an alternate greeting; -1 uses FirstMessage.
	FirstMsgIndex     int    `json:"first_msg_index"`
	ReplaceGlobalNote string `json:"replace_global_note"`
	CreatorNotes      string `json:"creator_notes"`
	Notes             string `json:"notes,omitempty"`

	Tags             []string       `json:"tags"`
	Creator          string         `json:"creator"`
	CharacterVersion string         `json:"character_version"`
	AdditionalData   AdditionalData `json:"additional_data"`

	UtilityBot       bool              `json:"utility_bot"`
	ViewScreen       ViewScreen        `json:"view_screen"`
	EmotionImages    []EmotionImage    `json:"emotion_images"`
	AdditionalAssets []AdditionalAsset `json:"additional_assets"`
	Bias             []BiasEntry       `json:"bias"`
	CustomScripts    []CustomScript    `json:"custom_scripts"`
	SDData           []SDSetting       `json:"sd_data"`
	BackgroundHTML   string            `json:"background_html,omitempty"`

	Lorebook     []LoreEntry    `json:"lorebook"`
	LoreSettings *LoreSettings  `json:"lore_settings,omitempty"`
	LoreExt      map[string]any `json:"lore_ext,omitempty"`

	Chats      []ChatSession `json:"chats"`
	ChatPage   int           `json:"chat_page"`
	SupaMemory bool          `json:"supa_memory"`

	RecentEmotions EmotionRing `json:"recent_emotions"`
}

// NewID returns a fresh unique character or message id.
func NewID() string {
	return uuid.NewString()
}

// New creates a character with the fixed defaults used for imported and
// freshly created records: one empty chat session and default image settings.
func New(name string) *Character {
	return &Character{
		ChaID:              NewID(),
		Name:               name,
		AlternateGreetings: []string{},
		FirstMsgIndex:      -1,
		Tags:               []string{},
		ViewScreen:         ViewScreenNone,
		EmotionImages:      []EmotionImage{},
		AdditionalAssets:   []AdditionalAsset{},
		Bias:               []BiasEntry{},
		CustomScripts:      []CustomScript{},
		SDData:             DefaultSDData(),
		Lorebook:           []LoreEntry{},
		Chats:              []ChatSession{NewSession("Chat 1")},
	}
}

// CurrentChat returns the selected chat session, creating one if the
// character has none.
func (c *Character) CurrentChat() *ChatSession {
	if len(c.Chats) == 0 {
		c.Chats = []ChatSession{NewSession("Chat 1")}
		c.ChatPage = 0
	}
	if c.ChatPage < 0 || c.ChatPage >= len(c.Chats) {
		c.ChatPage = 0
	}
	return &c.Chats[c.ChatPage]
}

// Greeting returns the opening message selected by FirstMsgIndex.
// An out of range index falls back to FirstMessage.
func (c *Character) Greeting() string {
	if c.FirstMsgIndex >= 0 && c.FirstMsgIndex < len(c.AlternateGreetings) {
		return c.AlternateGreetings[c.FirstMsgIndex]
	}
	return c.FirstMessage
}

// EmotionLabels returns the labels of the emotion image set in order.
func (c *Character) EmotionLabels() []string {
	labels := make([]string, len(c.EmotionImages))
	for i, e := range c.EmotionImages {
		labels[i] = e.Label
	}
	return labels
}

// FindEmotion returns the first emotion image whose label equals label.
// Matching is case-sensitive.
func (c *Character) FindEmotion(label string) (EmotionImage, bool) {
	for _, e := range c.EmotionImages {
		if e.Label == label {
			return e, true
		}
	}
	return EmotionImage{}, false
}
