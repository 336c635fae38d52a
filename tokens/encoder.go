package tokens

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used by TiktokenEncoder.
const DefaultEncoding = "cl100k_base"

// Encoder turns text into backend token ids.
type Encoder interface {
	Encode(text string) ([]int, error)
}

// TiktokenEncoder encodes with a tiktoken BPE. It also implements Counter
// with exact counts. The encoding is loaded on first use.
type TiktokenEncoder struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktokenEncoder creates an encoder for the named encoding.
// An empty name selects DefaultEncoding.
func NewTiktokenEncoder(encoding string) *TiktokenEncoder {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &TiktokenEncoder{encoding: encoding}
}

func (t *TiktokenEncoder) load() (*tiktoken.Tiktoken, error) {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.GetEncoding(t.encoding)
		if t.err != nil {
			t.err = fmt.Errorf("tokenizer: get encoding %s: %w", t.encoding, t.err)
		}
	})
	return t.enc, t.err
}

// Encode implements Encoder.
func (t *TiktokenEncoder) Encode(text string) ([]int, error) {
	enc, err := t.load()
	if err != nil {
		return nil, err
	}
	return enc.Encode(text, nil, nil), nil
}

// Count implements Counter. If the encoding cannot be loaded the count falls
// back to the character estimate.
func (t *TiktokenEncoder) Count(text string) int {
	enc, err := t.load()
	if err != nil {
		return EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// FitsInLimit implements Counter.
func (t *TiktokenEncoder) FitsInLimit(text string, limit int) bool {
	return t.Count(text) <= limit
}

// WordEncoder is a deterministic offline encoder that maps every
// whitespace-separated word to a stable id. It is meant for tests and for
// backends without a published vocabulary.
type WordEncoder struct{}

// Encode implements Encoder.
func (WordEncoder) Encode(text string) ([]int, error) {
	words := strings.Fields(text)
	ids := make([]int, len(words))
	for i, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		ids[i] = int(h.Sum32() % 100000)
	}
	return ids, nil
}
