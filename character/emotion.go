package character

import "time"

// EmotionHistorySize is the number of recent emotions remembered per character.
const EmotionHistorySize = 5

// EmotionRecord is one selected emotion.
type EmotionRecord struct {
	Label string    `json:"label"`
	Asset string    `json:"asset"`
	At    time.Time `json:"at"`
}

// EmotionRing is a bounded history of selected emotions, oldest first.
type EmotionRing []EmotionRecord

// Push appends r, evicting the oldest record when the ring is full.
func (r *EmotionRing) Push(rec EmotionRecord) {
	ring := *r
	if len(ring) >= EmotionHistorySize {
		ring = append(ring[:0:0], ring[len(ring)-EmotionHistorySize+1:]...)
	}
	*r = append(ring, rec)
}

// Current returns the most recent record.
func (r EmotionRing) Current() (EmotionRecord, bool) {
	if len(r) == 0 {
		return EmotionRecord{}, false
	}
	return r[len(r)-1], true
}

// Labels returns the recorded labels, oldest first.
func (r EmotionRing) Labels() []string {
	out := make([]string, len(r))
	for i, rec := range r {
		out[i] = rec.Label
	}
	return out
}
