package sim

import (
	"errors"
	"fmt"

	"neurogrid/internal/model"
)

var ErrHistoryOrder = errors.New("metrics must be appended in tick order")

// History is a bounded, tick-ordered metrics log. Appending returns a new
// History; once the limit is exceeded the oldest entries are dropped.
type History struct {
	limit   int
	entries []model.TickMetrics
}

func NewHistory(limit int) History {
	if limit <= 0 {
		limit = 1
	}
	return History{limit: limit}
}

func (h History) Append(m model.TickMetrics) (History, error) {
	if last, ok := h.Last(); ok && m.Tick <= last.Tick {
		return h, fmt.Errorf("%w: tick %d after %d", ErrHistoryOrder, m.Tick, last.Tick)
	}
	limit := h.limit
	if limit <= 0 {
		limit = 1
	}
	start := 0
	if len(h.entries)+1 > limit {
		start = len(h.entries) + 1 - limit
	}
	entries := make([]model.TickMetrics, 0, len(h.entries)-start+1)
	entries = append(entries, h.entries[start:]...)
	entries = append(entries, m)
	return History{limit: limit, entries: entries}, nil
}

func (h History) Limit() int { return h.limit }
func (h History) Len() int   { return len(h.entries) }

func (h History) Entries() []model.TickMetrics {
	return append([]model.TickMetrics(nil), h.entries...)
}

func (h History) Last() (model.TickMetrics, bool) {
	if len(h.entries) == 0 {
		return model.TickMetrics{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Since returns the retained entries with Tick > tick.
func (h History) Since(tick int) []model.TickMetrics {
	for i, m := range h.entries {
		if m.Tick > tick {
			return append([]model.TickMetrics(nil), h.entries[i:]...)
		}
	}
	return nil
}
