package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/prompt"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, 4000, s.MaxContext)
	assert.Equal(t, 300, s.MaxResponse)
	assert.Equal(t, model.GPT35, s.AIModel)
	assert.Equal(t, prompt.DefaultOrder, s.FormatOrder)
	assert.NoError(t, s.Validate())

	s.FormatOrder[0] = prompt.GroupJailbreak
	assert.Equal(t, prompt.GroupMain, prompt.DefaultOrder[0], "default order is copied")
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "settings.yaml", `
username: Kai
max_context: 8000
ai_model: gpt35_16k
format_order: [main, chats, lastChat, jailbreak]
bias:
  - text: hello
    weight: -20
`)
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Kai", s.Username)
	assert.Equal(t, 8000, s.MaxContext)
	assert.Equal(t, 300, s.MaxResponse, "unset keys keep defaults")
	assert.Equal(t, model.ModelName("gpt35_16k"), s.AIModel)
	assert.Equal(t, []prompt.GroupName{prompt.GroupMain, prompt.GroupChats, prompt.GroupLastChat, prompt.GroupJailbreak}, s.FormatOrder)
	assert.Equal(t, []character.BiasEntry{{Text: "hello", Weight: -20}}, s.Bias)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "settings.toml", `
username = "Kai"
max_response = 500
jailbreak_toggle = true
jailbreak = "stay in character"
`)
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Kai", s.Username)
	assert.Equal(t, 500, s.MaxResponse)
	assert.True(t, s.JailbreakToggle)
	assert.Equal(t, "stay in character", s.Jailbreak)
	assert.Equal(t, 4000, s.MaxContext)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		is      error
	}{
		{"unsupported extension", "settings.ini", "a=b", ErrUnsupportedFormat},
		{"unknown yaml key", "settings.yaml", "nope: 1\n", nil},
		{"unknown toml key", "settings.toml", "nope = 1\n", nil},
		{"bad yaml", "settings.yml", "max_context: [\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyYAML(t *testing.T) {
	s, err := Load(writeFile(t, "settings.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHARKIT_USERNAME", "Env")
	t.Setenv("CHARKIT_MAX_CONTEXT", "6000")
	t.Setenv("CHARKIT_MAX_RESPONSE", "bogus")
	t.Setenv("CHARKIT_AI_MODEL", "gpt4")
	t.Setenv("CHARKIT_TEMPERATURE", "0.5")
	t.Setenv("CHARKIT_STREAMING", "true")

	s := Default()
	s.LoadFromEnv()

	assert.Equal(t, "Env", s.Username)
	assert.Equal(t, 6000, s.MaxContext)
	assert.Equal(t, 300, s.MaxResponse, "unparsable values are ignored")
	assert.Equal(t, model.ModelName("gpt4"), s.AIModel)
	assert.InDelta(t, 0.5, s.Temperature, 1e-9)
	assert.True(t, s.Streaming)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"zero context", func(s *Settings) { s.MaxContext = 0 }},
		{"negative response", func(s *Settings) { s.MaxResponse = -1 }},
		{"response fills context", func(s *Settings) { s.MaxResponse = s.MaxContext }},
		{"temperature", func(s *Settings) { s.Temperature = 3 }},
		{"unknown group", func(s *Settings) { s.FormatOrder = append(s.FormatOrder, "bogus") }},
		{"duplicate group", func(s *Settings) { s.FormatOrder = append(s.FormatOrder, prompt.GroupChats) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalid)
		})
	}
}

func TestChatOptions(t *testing.T) {
	s := Default()
	s.Username = "Kai"
	s.Bias = []character.BiasEntry{{Text: "x", Weight: 5}}

	opts := s.ChatOptions()
	assert.Equal(t, "Kai", opts.Prompt.Username)
	assert.Equal(t, 300, opts.Prompt.MaxResponse)
	assert.Equal(t, s.FormatOrder, opts.Prompt.Order)
	assert.Equal(t, 4000, opts.MaxContext)
	assert.Equal(t, s.Bias, opts.Bias)
	require.NotNil(t, opts.Temperature)
	assert.InDelta(t, 0.8, *opts.Temperature, 1e-9)
	assert.True(t, opts.SummaryDisabled)

	s.SupaMemoryType = "subModel"
	assert.False(t, s.ChatOptions().SummaryDisabled)
}
