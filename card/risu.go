package card

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/randalmurphal/charkit/character"
)

// risuPayload is the msgpack document stored under the risuai PNG key.
type risuPayload struct {
	Type int           `msgpack:"type"`
	Data risuCharacter `msgpack:"data"`
}

type risuEmotion struct {
	_msgpack struct{} `msgpack:",as_array"`
	Label    string
	Data     []byte
}

type risuAsset struct {
	_msgpack struct{} `msgpack:",as_array"`
	Label    string
	Data     []byte
	Filename string
}

type risuBias struct {
	_msgpack struct{} `msgpack:",as_array"`
	Text     string
	Weight   int
}

type risuLore struct {
	Key               string         `msgpack:"key"`
	SecondKey         string         `msgpack:"secondkey"`
	InsertOrder       int            `msgpack:"insertorder"`
	Comment           string         `msgpack:"comment"`
	Content           string         `msgpack:"content"`
	Mode              string         `msgpack:"mode"`
	AlwaysActive      bool           `msgpack:"alwaysActive"`
	Selective         bool           `msgpack:"selective"`
	Extensions        map[string]any `msgpack:"extentions,omitempty"`
	ActivationPercent *float64       `msgpack:"activationPercent,omitempty"`
}

type risuLoreSettings struct {
	TokenBudget       int  `msgpack:"tokenBudget"`
	ScanDepth         int  `msgpack:"scanDepth"`
	RecursiveScanning bool `msgpack:"recursiveScanning"`
}

type risuAdditionalData struct {
	Tag              []string `msgpack:"tag"`
	Creator          string   `msgpack:"creator"`
	CharacterVersion string   `msgpack:"character_version"`
}

// risuCharacter mirrors the legacy character record field names.
type risuCharacter struct {
	ChaID              string                   `msgpack:"chaId"`
	Name               string                   `msgpack:"name"`
	Desc               string                   `msgpack:"desc"`
	FirstMessage       string                   `msgpack:"firstMessage"`
	ExampleMessage     string                   `msgpack:"exampleMessage"`
	Personality        string                   `msgpack:"personality"`
	Scenario           string                   `msgpack:"scenario"`
	SystemPrompt       string                   `msgpack:"systemPrompt"`
	CreatorNotes       string                   `msgpack:"creatorNotes"`
	Notes              string                   `msgpack:"notes"`
	AlternateGreetings []string                 `msgpack:"alternateGreetings"`
	FirstMsgIndex      *int                     `msgpack:"firstMsgIndex,omitempty"`
	ReplaceGlobalNote  string                   `msgpack:"replaceGlobalNote"`
	Tags               []string                 `msgpack:"tags"`
	Creator            string                   `msgpack:"creator"`
	CharacterVersion   string                   `msgpack:"characterVersion"`
	AdditionalData     *risuAdditionalData      `msgpack:"additionalData,omitempty"`
	UtilityBot         bool                     `msgpack:"utilityBot"`
	ViewScreen         character.ViewScreen     `msgpack:"viewScreen"`
	EmotionImages      []risuEmotion            `msgpack:"emotionImages"`
	AdditionalAssets   []risuAsset              `msgpack:"additionalAssets,omitempty"`
	Bias               []risuBias               `msgpack:"bias"`
	CustomScripts      []character.CustomScript `msgpack:"customscript"`
	SDData             [][]string               `msgpack:"sdData"`
	GlobalLore         []risuLore               `msgpack:"globalLore"`
	LoreSettings       *risuLoreSettings        `msgpack:"loreSettings,omitempty"`
	LoreExt            map[string]any           `msgpack:"loreExt,omitempty"`
	BackgroundHTML     string                   `msgpack:"backgroundHTML,omitempty"`
	SupaMemory         bool                     `msgpack:"supaMemory"`
	Chats              []any                    `msgpack:"chats"`
}

func decodeRisu(data []byte) (*risuCharacter, error) {
	var p risuPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, noData(FormatPNG, "risuai payload: "+err.Error())
	}
	if p.Type != RisuPayloadType {
		return nil, noData(FormatPNG, "risuai payload has unknown type")
	}
	return &p.Data, nil
}

func encodeRisu(rc *risuCharacter) ([]byte, error) {
	return msgpack.Marshal(risuPayload{Type: RisuPayloadType, Data: *rc})
}

// toCharacter maps the legacy record onto a fresh character. Asset bytes
// are not resolved here; the caller saves them.
func (rc *risuCharacter) toCharacter() *character.Character {
	c := character.New(firstNonEmpty(rc.Name, "unknown name"))
	c.Description = rc.Desc
	c.FirstMessage = rc.FirstMessage
	c.ExampleMessage = rc.ExampleMessage
	c.Personality = rc.Personality
	c.Scenario = rc.Scenario
	c.SystemPrompt = rc.SystemPrompt
	c.CreatorNotes = rc.CreatorNotes
	c.Notes = rc.Notes
	c.ReplaceGlobalNote = rc.ReplaceGlobalNote
	c.Creator = rc.Creator
	c.CharacterVersion = rc.CharacterVersion
	c.UtilityBot = rc.UtilityBot
	c.BackgroundHTML = rc.BackgroundHTML
	c.SupaMemory = rc.SupaMemory
	c.LoreExt = rc.LoreExt

	if rc.AlternateGreetings != nil {
		c.AlternateGreetings = rc.AlternateGreetings
	}
	if rc.FirstMsgIndex != nil {
		c.FirstMsgIndex = *rc.FirstMsgIndex
	}
	if rc.Tags != nil {
		c.Tags = rc.Tags
	}
	if rc.AdditionalData != nil {
		c.AdditionalData = character.AdditionalData{
			Tags:             rc.AdditionalData.Tag,
			Creator:          rc.AdditionalData.Creator,
			CharacterVersion: rc.AdditionalData.CharacterVersion,
		}
	}
	if rc.ViewScreen.Valid() {
		c.ViewScreen = rc.ViewScreen
	}
	for _, b := range rc.Bias {
		c.Bias = append(c.Bias, character.BiasEntry{Text: b.Text, Weight: b.Weight})
	}
	if rc.CustomScripts != nil {
		c.CustomScripts = rc.CustomScripts
	}
	if rc.SDData != nil {
		c.SDData = sdFromPairs(rc.SDData)
	}
	for _, l := range rc.GlobalLore {
		c.Lorebook = append(c.Lorebook, character.LoreEntry{
			Key:               l.Key,
			SecondKey:         l.SecondKey,
			InsertOrder:       l.InsertOrder,
			Comment:           l.Comment,
			Content:           l.Content,
			Mode:              firstNonEmpty(l.Mode, "normal"),
			AlwaysActive:      l.AlwaysActive,
			Selective:         l.Selective,
			Extensions:        l.Extensions,
			ActivationPercent: l.ActivationPercent,
		})
	}
	if s := rc.LoreSettings; s != nil {
		c.LoreSettings = &character.LoreSettings{
			TokenBudget:       s.TokenBudget,
			ScanDepth:         s.ScanDepth,
			RecursiveScanning: s.RecursiveScanning,
		}
	}
	return c
}

// fromCharacter builds the legacy record without assets or chats.
func fromCharacter(c *character.Character) *risuCharacter {
	idx := c.FirstMsgIndex
	rc := &risuCharacter{
		ChaID:              c.ChaID,
		Name:               c.Name,
		Desc:               c.Description,
		FirstMessage:       c.FirstMessage,
		ExampleMessage:     c.ExampleMessage,
		Personality:        c.Personality,
		Scenario:           c.Scenario,
		SystemPrompt:       c.SystemPrompt,
		CreatorNotes:       c.CreatorNotes,
		Notes:              c.Notes,
		AlternateGreetings: c.AlternateGreetings,
		FirstMsgIndex:      &idx,
		ReplaceGlobalNote:  c.ReplaceGlobalNote,
		Tags:               c.Tags,
		Creator:            c.Creator,
		CharacterVersion:   c.CharacterVersion,
		AdditionalData: &risuAdditionalData{
			Tag:              c.AdditionalData.Tags,
			Creator:          c.AdditionalData.Creator,
			CharacterVersion: c.AdditionalData.CharacterVersion,
		},
		UtilityBot:     c.UtilityBot,
		ViewScreen:     c.ViewScreen,
		CustomScripts:  c.CustomScripts,
		SDData:         sdToPairs(c.SDData),
		LoreExt:        c.LoreExt,
		BackgroundHTML: c.BackgroundHTML,
		SupaMemory:     c.SupaMemory,
		Chats:          []any{},
	}
	for _, b := range c.Bias {
		rc.Bias = append(rc.Bias, risuBias{Text: b.Text, Weight: b.Weight})
	}
	for _, l := range c.Lorebook {
		rc.GlobalLore = append(rc.GlobalLore, risuLore{
			Key:               l.Key,
			SecondKey:         l.SecondKey,
			InsertOrder:       l.InsertOrder,
			Comment:           l.Comment,
			Content:           l.Content,
			Mode:              l.Mode,
			AlwaysActive:      l.AlwaysActive,
			Selective:         l.Selective,
			Extensions:        l.Extensions,
			ActivationPercent: l.ActivationPercent,
		})
	}
	if s := c.LoreSettings; s != nil {
		rc.LoreSettings = &risuLoreSettings{
			TokenBudget:       s.TokenBudget,
			ScanDepth:         s.ScanDepth,
			RecursiveScanning: s.RecursiveScanning,
		}
	}
	return rc
}

func sdFromPairs(pairs [][]string) []character.SDSetting {
	out := make([]character.SDSetting, 0, len(pairs))
	for _, p := range pairs {
		var s character.SDSetting
		if len(p) > 0 {
			s.Key = p[0]
		}
		if len(p) > 1 {
			s.Value = p[1]
		}
		out = append(out, s)
	}
	return out
}

func sdToPairs(settings []character.SDSetting) [][]string {
	out := make([][]string, 0, len(settings))
	for _, s := range settings {
		out = append(out, []string{s.Key, s.Value})
	}
	return out
}
