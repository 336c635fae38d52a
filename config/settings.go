package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/chat"
	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/prompt"
	"github.com/randalmurphal/charkit/provider"
)

// SupaMemoryNone disables summarization for every room.
const SupaMemoryNone = "none"

// Settings are the global settings read by the composer and the engine.
type Settings struct {
	MainPrompt        string `json:"main_prompt" yaml:"main_prompt" toml:"main_prompt" mapstructure:"main_prompt"`
	Jailbreak         string `json:"jailbreak" yaml:"jailbreak" toml:"jailbreak" mapstructure:"jailbreak"`
	JailbreakToggle   bool   `json:"jailbreak_toggle" yaml:"jailbreak_toggle" toml:"jailbreak_toggle" mapstructure:"jailbreak_toggle"`
	GlobalNote        string `json:"global_note" yaml:"global_note" toml:"global_note" mapstructure:"global_note"`
	AdditionalPrompt  string `json:"additional_prompt" yaml:"additional_prompt" toml:"additional_prompt" mapstructure:"additional_prompt"`
	DescriptionPrefix string `json:"description_prefix" yaml:"description_prefix" toml:"description_prefix" mapstructure:"description_prefix"`
	PromptPreprocess  bool   `json:"prompt_preprocess" yaml:"prompt_preprocess" toml:"prompt_preprocess" mapstructure:"prompt_preprocess"`
	Username          string `json:"username" yaml:"username" toml:"username" mapstructure:"username"`

	// MaxContext is the context size in tokens. The model cap still applies.
	MaxContext int `json:"max_context" yaml:"max_context" toml:"max_context" mapstructure:"max_context"`

	// MaxResponse is the token count reserved for the reply.
	MaxResponse int `json:"max_response" yaml:"max_response" toml:"max_response" mapstructure:"max_response"`

	AIModel  model.ModelName `json:"ai_model" yaml:"ai_model" toml:"ai_model" mapstructure:"ai_model"`
	SubModel model.ModelName `json:"sub_model" yaml:"sub_model" toml:"sub_model" mapstructure:"sub_model"`

	// FormatOrder is the prompt group order. Empty uses prompt.DefaultOrder.
	FormatOrder []prompt.GroupName `json:"format_order" yaml:"format_order" toml:"format_order" mapstructure:"format_order"`

	// Bias is the global token bias, applied after the character's.
	Bias []character.BiasEntry `json:"bias" yaml:"bias" toml:"bias" mapstructure:"bias"`

	// EmotionPrompt replaces the classifier instruction when set.
	EmotionPrompt string `json:"emotion_prompt" yaml:"emotion_prompt" toml:"emotion_prompt" mapstructure:"emotion_prompt"`

	// SupaMemoryType names the summarizer. SupaMemoryNone turns it off.
	SupaMemoryType string `json:"supa_memory_type" yaml:"supa_memory_type" toml:"supa_memory_type" mapstructure:"supa_memory_type"`

	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature" mapstructure:"temperature"`
	Streaming   bool    `json:"streaming" yaml:"streaming" toml:"streaming" mapstructure:"streaming"`
}

// Default returns the settings of a fresh install.
func Default() Settings {
	return Settings{
		MainPrompt:     "Write the next reply in a fictional chat between {{char}} and {{user}}. Stay in character.",
		Username:       "User",
		MaxContext:     4000,
		MaxResponse:    300,
		AIModel:        model.GPT35,
		SubModel:       model.GPT35,
		FormatOrder:    append([]prompt.GroupName(nil), prompt.DefaultOrder...),
		Bias:           []character.BiasEntry{},
		SupaMemoryType: SupaMemoryNone,
		Temperature:    0.8,
	}
}

// Load reads settings from path over Default. The format follows the
// extension: .yaml and .yml for YAML, .toml for TOML.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := s.decode(filepath.Ext(path), data); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) decode(ext string, data []byte) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		md, err := toml.Decode(string(data), s)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// LoadFromEnv applies environment variable overrides.
//
// Environment variables:
//   - CHARKIT_USERNAME: Display name of the user
//   - CHARKIT_MAX_CONTEXT: Context size in tokens
//   - CHARKIT_MAX_RESPONSE: Reserved reply tokens
//   - CHARKIT_AI_MODEL: Main model name
//   - CHARKIT_SUB_MODEL: Submodel name
//   - CHARKIT_TEMPERATURE: Sampling temperature
//   - CHARKIT_JAILBREAK_TOGGLE: Enables the jailbreak prompt
//   - CHARKIT_STREAMING: Requests streamed replies
func (s *Settings) LoadFromEnv() {
	if v := os.Getenv("CHARKIT_USERNAME"); v != "" {
		s.Username = v
	}
	if v := os.Getenv("CHARKIT_MAX_CONTEXT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxContext = n
		}
	}
	if v := os.Getenv("CHARKIT_MAX_RESPONSE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxResponse = n
		}
	}
	if v := os.Getenv("CHARKIT_AI_MODEL"); v != "" {
		s.AIModel = model.ModelName(v)
	}
	if v := os.Getenv("CHARKIT_SUB_MODEL"); v != "" {
		s.SubModel = model.ModelName(v)
	}
	if v := os.Getenv("CHARKIT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Temperature = f
		}
	}
	if v := os.Getenv("CHARKIT_JAILBREAK_TOGGLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.JailbreakToggle = b
		}
	}
	if v := os.Getenv("CHARKIT_STREAMING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Streaming = b
		}
	}
}

// Validate checks limits and the group order.
func (s *Settings) Validate() error {
	if s.MaxContext <= 0 {
		return fmt.Errorf("%w: max_context must be positive, got %d", ErrInvalid, s.MaxContext)
	}
	if s.MaxResponse < 0 {
		return fmt.Errorf("%w: max_response must not be negative, got %d", ErrInvalid, s.MaxResponse)
	}
	if s.MaxResponse >= s.MaxContext {
		return fmt.Errorf("%w: max_response %d leaves no room in max_context %d", ErrInvalid, s.MaxResponse, s.MaxContext)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be within [0, 2], got %g", ErrInvalid, s.Temperature)
	}
	seen := make(map[prompt.GroupName]bool, len(s.FormatOrder))
	for _, g := range s.FormatOrder {
		if !g.Valid() {
			return fmt.Errorf("%w: unknown prompt group %q", ErrInvalid, g)
		}
		if seen[g] {
			return fmt.Errorf("%w: duplicate prompt group %q", ErrInvalid, g)
		}
		seen[g] = true
	}
	return nil
}

// PromptOptions returns the composer options.
func (s *Settings) PromptOptions() prompt.Options {
	return prompt.Options{
		MainPrompt:        s.MainPrompt,
		Jailbreak:         s.Jailbreak,
		JailbreakToggle:   s.JailbreakToggle,
		GlobalNote:        s.GlobalNote,
		AdditionalPrompt:  s.AdditionalPrompt,
		DescriptionPrefix: s.DescriptionPrefix,
		PromptPreprocess:  s.PromptPreprocess,
		Username:          s.Username,
		MaxResponse:       s.MaxResponse,
		Order:             s.FormatOrder,
	}
}

// ChatOptions returns the engine options.
func (s *Settings) ChatOptions() chat.Options {
	temp := s.Temperature
	return chat.Options{
		Prompt:          s.PromptOptions(),
		Model:           s.AIModel,
		MaxContext:      s.MaxContext,
		Bias:            s.Bias,
		Streaming:       s.Streaming,
		Temperature:     &temp,
		SummaryDisabled: s.SupaMemoryType == "" || s.SupaMemoryType == SupaMemoryNone,
	}
}

// ProviderConfig fills the model fields of cfg from the settings.
func (s *Settings) ProviderConfig(cfg provider.Config) provider.Config {
	cfg.Model = string(s.AIModel)
	cfg.SubModel = string(s.SubModel)
	cfg.Temperature = s.Temperature
	cfg.MaxTokens = s.MaxResponse
	return cfg
}
