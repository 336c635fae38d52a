package provider

import (
	"context"
	"sync"
	"time"
)

// MockClient is a test double for Client.
// It supports fixed responses, sequential responses, streamed chunks and
// custom handlers.
type MockClient struct {
	mu          sync.Mutex
	responses   []string
	responseIdx int
	special     *Special
	chunks      []string
	err         error
	caps        Capabilities
	sendFunc    func(ctx context.Context, req Request) (*Response, error)

	// Calls tracks all requests for assertions.
	Calls []Request
}

// NewMockClient creates a mock that returns a fixed response.
func NewMockClient(response string) *MockClient {
	return &MockClient{
		responses: []string{response},
		caps:      Capabilities{Streaming: true, LogitBias: true, SubModel: true},
	}
}

// WithResponses configures sequential responses.
// Each call returns the next response, cycling after the last one.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.responses = responses
	return m
}

// WithSpecial attaches side data to every reply.
func (m *MockClient) WithSpecial(s *Special) *MockClient {
	m.special = s
	return m
}

// WithChunks configures Stream to emit these accumulated texts in order.
// Without chunks, Stream emits the next response as a single chunk.
func (m *MockClient) WithChunks(chunks ...string) *MockClient {
	m.chunks = chunks
	return m
}

// WithError configures the mock to always return an error.
func (m *MockClient) WithError(err error) *MockClient {
	m.err = err
	return m
}

// WithCapabilities overrides the reported capabilities.
func (m *MockClient) WithCapabilities(c Capabilities) *MockClient {
	m.caps = c
	return m
}

// WithSendFunc sets a custom handler for Send calls.
// This takes precedence over fixed responses.
func (m *MockClient) WithSendFunc(fn func(ctx context.Context, req Request) (*Response, error)) *MockClient {
	m.sendFunc = fn
	return m
}

func (m *MockClient) next() string {
	if len(m.responses) == 0 {
		return ""
	}
	r := m.responses[m.responseIdx%len(m.responses)]
	m.responseIdx++
	return r
}

// Send implements Client.
func (m *MockClient) Send(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.sendFunc
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	content := m.next()
	return &Response{
		Content:      content,
		Special:      m.special,
		Usage:        TokenUsage{InputTokens: 10, OutputTokens: len(content) / 4, TotalTokens: 10 + len(content)/4},
		FinishReason: "stop",
		Duration:     10 * time.Millisecond,
	}, nil
}

// Stream implements Client.
func (m *MockClient) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}
	chunks := m.chunks
	if len(chunks) == 0 {
		chunks = []string{m.next()}
	}
	special := m.special
	m.mu.Unlock()

	ch := make(chan StreamChunk, len(chunks)+1)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			select {
			case <-ctx.Done():
				ch <- StreamChunk{Error: ctx.Err(), Done: true}
				return
			case ch <- StreamChunk{Content: c}:
			}
		}
		last := ""
		if len(chunks) > 0 {
			last = chunks[len(chunks)-1]
		}
		ch <- StreamChunk{Content: last, Special: special, Done: true}
	}()
	return ch, nil
}

// Provider implements Client.
func (m *MockClient) Provider() string { return "mock" }

// Capabilities implements Client.
func (m *MockClient) Capabilities() Capabilities { return m.caps }

// Close implements Client.
func (m *MockClient) Close() error { return nil }

// CallCount returns the number of requests made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil if none.
func (m *MockClient) LastCall() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	req := m.Calls[len(m.Calls)-1]
	return &req
}
