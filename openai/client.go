package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/provider"
)

// ProviderName is the registry name of this provider.
const ProviderName = "openai"

// Logit bias bounds accepted by the API.
const (
	minBias = -100
	maxBias = 100
)

func init() {
	provider.Register(ProviderName, func(cfg provider.Config) (provider.Client, error) {
		return New(cfg)
	})
}

// Client talks to a chat completions endpoint.
type Client struct {
	api oai.Client
	cfg provider.Config
}

// New creates a client. An API key is required unless a custom BaseURL is
// configured.
func New(cfg provider.Config) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: openai api key", provider.ErrCredentialsNotFound)
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		api: oai.NewClient(opts...),
		cfg: cfg,
	}, nil
}

// Provider implements provider.Client.
func (c *Client) Provider() string {
	return ProviderName
}

// Capabilities implements provider.Client.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.OpenAICapabilities
}

// Close implements provider.Client.
func (c *Client) Close() error {
	return nil
}

// Send implements provider.Client.
func (c *Client) Send(ctx context.Context, req provider.Request) (*provider.Response, error) {
	params := c.params(req)
	start := time.Now()

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrap("send", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, provider.NewError(ProviderName, "send", provider.ErrEmptyResponse, false)
	}

	choice := resp.Choices[0]
	return &provider.Response{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage:        usage(resp.Usage),
		Duration:     time.Since(start),
	}, nil
}

// Stream implements provider.Client. Chunks carry the accumulated text.
func (c *Client) Stream(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	params := c.params(req)
	stream := c.api.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan provider.StreamChunk)
	go func() {
		defer close(out)
		defer func() {
			if err := stream.Close(); err != nil {
				slog.Debug("close openai stream", slog.Any("error", err))
			}
		}()

		send := func(ch provider.StreamChunk) bool {
			select {
			case out <- ch:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var text strings.Builder
		var final *provider.TokenUsage
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				u := usage(chunk.Usage)
				final = &u
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			text.WriteString(chunk.Choices[0].Delta.Content)
			if !send(provider.StreamChunk{Content: text.String()}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(provider.StreamChunk{Content: text.String(), Done: true, Error: wrap("stream", err)})
			return
		}
		send(provider.StreamChunk{Content: text.String(), Usage: final, Done: true})
	}()
	return out, nil
}

func (c *Client) params(req provider.Request) oai.ChatCompletionNewParams {
	name := req.Model
	if name == "" {
		name = c.cfg.ModelFor(req.Channel)
	}

	params := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(model.APIModel(model.ModelName(name))),
		Messages: messages(req.Messages),
	}

	temp := c.cfg.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	params.Temperature = oai.Float(temp)

	maxTokens := c.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = oai.Int(int64(maxTokens))
	}

	if len(req.Bias) > 0 {
		params.LogitBias = logitBias(req.Bias)
	}
	return params
}

func messages(msgs []provider.Message) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case provider.RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case provider.RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}

func logitBias(bias map[int]int) map[string]int64 {
	out := make(map[string]int64, len(bias))
	for id, w := range bias {
		out[strconv.Itoa(id)] = int64(min(max(w, minBias), maxBias))
	}
	return out
}

func usage(u oai.CompletionUsage) provider.TokenUsage {
	return provider.TokenUsage{
		InputTokens:  int(u.PromptTokens),
		OutputTokens: int(u.CompletionTokens),
		TotalTokens:  int(u.TotalTokens),
	}
}

// wrap classifies an SDK error into the provider error taxonomy.
func wrap(op string, err error) error {
	var apiErr *oai.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return provider.NewError(ProviderName, op, fmt.Errorf("%w: %w", provider.ErrTimeout, err), true)
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == 429:
			return provider.NewError(ProviderName, op, fmt.Errorf("%w: %w", provider.ErrRateLimited, err), true)
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return provider.NewError(ProviderName, op, fmt.Errorf("%w: %w", provider.ErrCredentialsNotFound, err), false)
		case apiErr.Code == "context_length_exceeded" || strings.Contains(apiErr.Error(), "context_length_exceeded"):
			return provider.NewError(ProviderName, op, fmt.Errorf("%w: %w", provider.ErrContextTooLong, err), false)
		case apiErr.StatusCode >= 500:
			return provider.NewError(ProviderName, op, fmt.Errorf("%w: %w", provider.ErrUnavailable, err), true)
		case apiErr.StatusCode >= 400:
			return provider.NewError(ProviderName, op, fmt.Errorf("%w: %w", provider.ErrInvalidRequest, err), false)
		}
	}
	return provider.NewError(ProviderName, op, err, false)
}
