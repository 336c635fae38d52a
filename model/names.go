package model

import "strings"

// ModelName identifies a chat backend.
type ModelName string

// OpenAI-compatible chat models.
const (
	GPT35          ModelName = "gpt35"
	GPT35_16k      ModelName = "gpt35_16k"
	GPT35_16k_0613 ModelName = "gpt35_16k_0613"
	GPT4           ModelName = "gpt4"
	GPT4_32k       ModelName = "gpt4_32k"
)

// Other backends.
const (
	DeepAI       ModelName = "deepai"
	Palm2        ModelName = "palm2"
	TextgenWebUI ModelName = "textgen_webui"
	Custom       ModelName = "custom"
)

// Message overheads charged per chat message.
const (
	GPTMessageOverhead     = 5
	DefaultMessageOverhead = 3
)

// contextCaps holds the hard context limit of each capped backend.
var contextCaps = map[ModelName]int{
	GPT35:          4000,
	GPT35_16k:      16000,
	GPT35_16k_0613: 16000,
	GPT4:           8000,
	GPT4_32k:       32000,
	DeepAI:         3000,
	Palm2:          8000,
}

// ContextCap returns the hard context limit for a model and whether one exists.
func ContextCap(name ModelName) (int, bool) {
	c, ok := contextCaps[name]
	return c, ok
}

// EffectiveContext returns min(userMax, cap). Uncapped models return userMax.
func EffectiveContext(name ModelName, userMax int) int {
	c, ok := contextCaps[name]
	if ok && c < userMax {
		return c
	}
	return userMax
}

// IsGPT reports whether the model is an OpenAI chat model.
func IsGPT(name ModelName) bool {
	return strings.HasPrefix(string(name), "gpt")
}

// MessageOverhead returns the per-message token overhead for a model.
func MessageOverhead(name ModelName) int {
	if IsGPT(name) {
		return GPTMessageOverhead
	}
	return DefaultMessageOverhead
}

// APIModel maps a model name to the identifier sent to an OpenAI-compatible
// endpoint. Unknown names are passed through unchanged.
func APIModel(name ModelName) string {
	switch name {
	case GPT35:
		return "gpt-3.5-turbo"
	case GPT35_16k:
		return "gpt-3.5-turbo-16k"
	case GPT35_16k_0613:
		return "gpt-3.5-turbo-16k-0613"
	case GPT4:
		return "gpt-4"
	case GPT4_32k:
		return "gpt-4-32k"
	default:
		return string(name)
	}
}

// Known returns every named model.
func Known() []ModelName {
	return []ModelName{GPT35, GPT35_16k, GPT35_16k_0613, GPT4, GPT4_32k, DeepAI, Palm2, TextgenWebUI, Custom}
}
