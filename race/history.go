package race

import "github.com/wfunc/ballrace/models"

// History keeps the most recent race summaries for admin queries,
// oldest evicted first. Owned by the engine loop; no locking.
type History struct {
	capacity int
	entries  []models.RaceSummary
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity}
}

func (h *History) Add(summary models.RaceSummary) {
	h.entries = append(h.entries, summary)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// All returns a copy, newest last.
func (h *History) All() []models.RaceSummary {
	out := make([]models.RaceSummary, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}
