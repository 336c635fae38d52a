package truncate_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/tokens"
	"github.com/randalmurphal/charkit/truncate"
)

const overhead = 5

func counter() *tokens.ChatTokenizer {
	return tokens.NewChatTokenizer(tokens.NewEstimatingCounter(), nil, overhead, tokens.NameModeNone)
}

// msg returns a message costing n content tokens plus overhead.
func msg(n int, memo string) provider.Message {
	return provider.Message{Role: provider.RoleUser, Content: strings.Repeat("abcd", n), Memo: memo}
}

func history(count, size int) ([]provider.Message, int) {
	h := make([]provider.Message, count)
	total := 0
	for i := range h {
		h[i] = msg(size, fmt.Sprintf("id-%d", i))
		total += size + overhead
	}
	return h, total
}

func TestFit_BudgetInvariantPerModel(t *testing.T) {
	const reserved = 300
	const userMax = 100000
	hist, histTokens := history(3000, 10)

	for _, m := range model.Known() {
		t.Run(string(m), func(t *testing.T) {
			sess := &character.ChatSession{}
			res, err := truncate.Fit(context.Background(), truncate.FitRequest{
				History:    hist,
				Tokens:     reserved + histTokens,
				MaxContext: userMax,
				Model:      m,
				Session:    sess,
				Counter:    counter(),
			})
			require.NoError(t, err)

			limit := model.EffectiveContext(m, userMax)
			assert.Equal(t, limit, res.Limit)
			assert.LessOrEqual(t, res.Tokens, limit)
			assert.Equal(t, reserved+len(res.History)*(10+overhead), res.Tokens)
			assert.Equal(t, len(hist)-len(res.History), res.Evicted)
			assert.Equal(t, res.History[0].Memo, sess.LastMemory)
		})
	}
}

func TestFit_UserMaxBelowCap(t *testing.T) {
	hist, histTokens := history(100, 10)

	res, err := truncate.Fit(context.Background(), truncate.FitRequest{
		History:    hist,
		Tokens:     histTokens,
		MaxContext: 300,
		Model:      model.GPT4,
		Counter:    counter(),
	})
	require.NoError(t, err)

	assert.Equal(t, 300, res.Limit)
	assert.Len(t, res.History, 20)
	assert.Equal(t, "id-80", res.History[0].Memo)
	assert.Len(t, hist, 100, "input history is not modified")
}

func TestFit_SingleMessageTooLarge(t *testing.T) {
	hist := []provider.Message{msg(10, "small"), msg(4000, "huge")}
	tokensIn := 300 + (10 + overhead) + (4000 + overhead)
	sess := &character.ChatSession{LastMemory: "before"}

	_, err := truncate.Fit(context.Background(), truncate.FitRequest{
		History:    hist,
		Tokens:     tokensIn,
		MaxContext: 8000,
		Model:      model.GPT35,
		Session:    sess,
		Counter:    counter(),
	})
	require.Error(t, err)

	var be *truncate.BudgetExceededError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 300+4000+overhead, be.Required)
	assert.Equal(t, 4000, be.Limit)
	assert.ErrorIs(t, err, provider.ErrContextTooLong)
	assert.True(t, truncate.IsBudgetExceeded(err))
	assert.Equal(t, "before", sess.LastMemory)
}

func TestFit_NoTrimNeeded(t *testing.T) {
	hist, histTokens := history(3, 10)
	sess := &character.ChatSession{}

	res, err := truncate.Fit(context.Background(), truncate.FitRequest{
		History:    hist,
		Tokens:     histTokens,
		MaxContext: 4000,
		Model:      model.GPT35,
		Session:    sess,
		Counter:    counter(),
	})
	require.NoError(t, err)

	assert.Equal(t, hist, res.History)
	assert.Zero(t, res.Evicted)
	assert.Equal(t, "id-0", sess.LastMemory)
}

type stubSummarizer struct {
	res *truncate.SummarizeResult
	err error
	got truncate.SummarizeRequest
}

func (s *stubSummarizer) Summarize(_ context.Context, req truncate.SummarizeRequest) (*truncate.SummarizeResult, error) {
	s.got = req
	return s.res, s.err
}

func TestFit_Summarize(t *testing.T) {
	hist, histTokens := history(10, 10)
	sess := &character.ChatSession{SupaMemoryData: "old"}
	sum := &stubSummarizer{res: &truncate.SummarizeResult{
		History: []provider.Message{provider.NewTextMessage(provider.RoleSystem, "summary"), hist[9]},
		Tokens:  60,
		Memory:  "new memory",
		LastID:  "id-8",
	}}

	res, err := truncate.Fit(context.Background(), truncate.FitRequest{
		History:    hist,
		Tokens:     histTokens,
		MaxContext: 100,
		Model:      model.Custom,
		Session:    sess,
		Counter:    counter(),
		Mode:       truncate.ModeSummarize,
		Summarizer: sum,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, sum.got.Limit)
	assert.Len(t, res.History, 2)
	assert.Equal(t, 60, res.Tokens)
	assert.Equal(t, 8, res.Evicted)
	assert.Equal(t, "new memory", sess.SupaMemoryData)
	assert.Equal(t, "id-8", sess.LastMemory)
}

func TestFit_SummarizerError(t *testing.T) {
	cause := errors.New("summary backend down")
	hist, histTokens := history(2, 10)

	_, err := truncate.Fit(context.Background(), truncate.FitRequest{
		History:    hist,
		Tokens:     histTokens,
		MaxContext: 10,
		Counter:    counter(),
		Mode:       truncate.ModeSummarize,
		Summarizer: &stubSummarizer{err: cause},
	})

	var se *truncate.SummarizerError
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, cause)

	_, err = truncate.Fit(context.Background(), truncate.FitRequest{Mode: truncate.ModeSummarize})
	assert.ErrorIs(t, err, truncate.ErrNoSummarizer)
}
