package editor

import "drawflow-backend/internal/model"

const DefaultHistoryLimit = 20

// History is a fixed-capacity ring of user-initiated export snapshots.
// When full, appending evicts the oldest entry. It is not safe for
// concurrent use; Editor guards it.
type History struct {
	buf   []model.HistoryEntry
	start int
	n     int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{buf: make([]model.HistoryEntry, limit)}
}

func (h *History) Cap() int { return len(h.buf) }
func (h *History) Len() int { return h.n }

func (h *History) Append(e model.HistoryEntry) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = e
		h.n++
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % len(h.buf)
}

// Entries returns a copy, oldest first.
func (h *History) Entries() []model.HistoryEntry {
	out := make([]model.HistoryEntry, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Replace swaps the contents for entries, keeping only the newest Cap().
func (h *History) Replace(entries []model.HistoryEntry) {
	h.Clear()
	if len(entries) > len(h.buf) {
		entries = entries[len(entries)-len(h.buf):]
	}
	for _, e := range entries {
		h.Append(e)
	}
}

func (h *History) Clear() {
	for i := range h.buf {
		h.buf[i] = model.HistoryEntry{}
	}
	h.start, h.n = 0, 0
}
