package editor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawflow-backend/internal/model"
)

func entry(i int) model.HistoryEntry {
	return model.HistoryEntry{Rendering: fmt.Sprintf("svg-%d", i), Markup: fmt.Sprintf("xml-%d", i)}
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(0)
	require.Equal(t, DefaultHistoryLimit, h.Cap())

	for i := 1; i <= 21; i++ {
		h.Append(entry(i))
	}

	got := h.Entries()
	require.Len(t, got, 20)
	assert.Equal(t, entry(2), got[0], "the first entry is evicted")
	for i := range got {
		assert.Equal(t, entry(i+2), got[i], "relative order is preserved")
	}
}

func TestHistory_NeverExceedsCapacity(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 100; i++ {
		h.Append(entry(i))
		assert.LessOrEqual(t, h.Len(), 3)
	}
	assert.Equal(t, []model.HistoryEntry{entry(97), entry(98), entry(99)}, h.Entries())
}

func TestHistory_ReplaceKeepsNewest(t *testing.T) {
	h := NewHistory(2)
	h.Append(entry(0))

	h.Replace([]model.HistoryEntry{entry(1), entry(2), entry(3)})
	assert.Equal(t, []model.HistoryEntry{entry(2), entry(3)}, h.Entries())

	h.Replace(nil)
	assert.Empty(t, h.Entries())
}

func TestHistory_EntriesIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.Append(entry(1))

	got := h.Entries()
	got[0].Markup = "changed"
	assert.Equal(t, "xml-1", h.Entries()[0].Markup)
}
