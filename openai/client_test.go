package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/charkit/provider"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-3.5-turbo",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello there"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

type captured struct {
	Model       string           `json:"model"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
	LogitBias   map[string]int64 `json:"logit_bias"`
	Stream      bool             `json:"stream"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, body captured)) (*httptest.Server, *captured) {
	t.Helper()
	var got captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		handler(w, got)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(provider.Config{
		Provider:    ProviderName,
		Model:       "gpt4",
		SubModel:    "gpt35",
		APIKey:      "test-key",
		BaseURL:     url,
		Temperature: 0.8,
		MaxTokens:   300,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(provider.Config{Provider: ProviderName})
	assert.ErrorIs(t, err, provider.ErrCredentialsNotFound)

	_, err = New(provider.Config{Provider: ProviderName, BaseURL: "http://localhost:5000/v1"})
	assert.NoError(t, err)
}

func TestRegistered(t *testing.T) {
	assert.True(t, provider.IsRegistered(ProviderName))
}

func TestSend(t *testing.T) {
	srv, got := newServer(t, func(w http.ResponseWriter, _ captured) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON)
	})
	c := newClient(t, srv.URL)

	resp, err := c.Send(context.Background(), provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "be nice"},
			{Role: provider.RoleUser, Content: "Hi"},
		},
		Bias: map[int]int{1234: 10, 99: -250},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, provider.TokenUsage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15}, resp.Usage)

	assert.Equal(t, "gpt-4", got.Model)
	assert.InDelta(t, 0.8, got.Temperature, 1e-9)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, map[string]int64{"1234": 10, "99": -100}, got.LogitBias)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Hi", got.Messages[1].Content)
}

func TestSend_SubmodelOverrides(t *testing.T) {
	srv, got := newServer(t, func(w http.ResponseWriter, _ captured) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON)
	})
	c := newClient(t, srv.URL)

	_, err := c.Send(context.Background(), provider.Request{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: "x"}},
		Channel:     provider.ChannelSubmodel,
		Temperature: provider.Float(0.4),
		MaxTokens:   30,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.InDelta(t, 0.4, got.Temperature, 1e-9)
	assert.Equal(t, 30, got.MaxTokens)
	assert.Empty(t, got.LogitBias)
}

func TestSend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, "rate_limit_exceeded", provider.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, "invalid_api_key", provider.ErrCredentialsNotFound},
		{"context length", http.StatusBadRequest, "context_length_exceeded", provider.ErrContextTooLong},
		{"bad request", http.StatusBadRequest, "invalid_value", provider.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, "server_error", provider.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, func(w http.ResponseWriter, _ captured) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error": {"message": "nope", "type": "error", "param": null, "code": %q}}`, tt.code)
			})
			c := newClient(t, srv.URL)

			_, err := c.Send(context.Background(), provider.Request{
				Messages: []provider.Message{{Role: provider.RoleUser, Content: "x"}},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var perr *provider.Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, ProviderName, perr.Provider)
		})
	}
}

func TestStream(t *testing.T) {
	srv, got := newServer(t, func(w http.ResponseWriter, _ captured) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo", " there"} {
			fmt.Fprintf(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	c := newClient(t, srv.URL)

	ch, err := c.Stream(context.Background(), provider.Request{
		Messages:  []provider.Message{{Role: provider.RoleUser, Content: "Hi"}},
		Streaming: true,
	})
	require.NoError(t, err)

	var texts []string
	var last provider.StreamChunk
	for chunk := range ch {
		require.NoError(t, chunk.Error)
		last = chunk
		if !chunk.Done {
			texts = append(texts, chunk.Content)
		}
	}

	assert.Equal(t, []string{"Hel", "Hello", "Hello there"}, texts)
	assert.True(t, last.Done)
	assert.Equal(t, "Hello there", last.Content)
	assert.True(t, got.Stream)
}

func TestLogitBias_Clamps(t *testing.T) {
	got := logitBias(map[int]int{1: 500, 2: -500, 3: 7})
	assert.Equal(t, map[string]int64{"1": 100, "2": -100, "3": 7}, got)
}
