package tokens

import (
	"fmt"

	"github.com/randalmurphal/charkit/character"
)

// BiasMap maps token ids to logit adjustments.
type BiasMap map[int]int

// Merge copies other into b; entries of other win on collision.
func (b BiasMap) Merge(other BiasMap) {
	for k, v := range other {
		b[k] = v
	}
}

// BuildBias encodes each entry's text and assigns its weight to every
// resulting token. Sources are applied in order, so later sources overwrite
// earlier ones on shared tokens.
func BuildBias(enc Encoder, sources ...[]character.BiasEntry) (BiasMap, error) {
	bias := BiasMap{}
	for _, src := range sources {
		for _, entry := range src {
			ids, err := enc.Encode(entry.Text)
			if err != nil {
				return nil, fmt.Errorf("encode bias %q: %w", entry.Text, err)
			}
			for _, id := range ids {
				bias[id] = entry.Weight
			}
		}
	}
	return bias, nil
}
