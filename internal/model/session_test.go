package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionMetadata(t *testing.T) {
	now := time.Now()
	s := &Session{
		ID:         "s1",
		Title:      "Flow",
		Messages:   []Message{{ID: "m1"}, {ID: "m2"}},
		DiagramXML: "  ",
		Thumbnail:  "<svg/>",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	md := s.Metadata()
	assert.Equal(t, "s1", md.ID)
	assert.Equal(t, 2, md.MessageCount)
	assert.False(t, md.HasDiagram, "whitespace-only markup is not a diagram")
	assert.Equal(t, "<svg/>", md.Thumbnail)

	s.DiagramXML = "<mxfile/>"
	assert.True(t, s.Metadata().HasDiagram)
}

func TestSessionClone_DoesNotShareSlices(t *testing.T) {
	s := &Session{
		ID:             "s1",
		Messages:       []Message{{ID: "m1"}},
		DiagramHistory: []HistoryEntry{{Markup: "a"}},
	}

	c := s.Clone()
	c.Messages[0].ID = "changed"
	c.DiagramHistory[0].Markup = "changed"

	assert.Equal(t, "m1", s.Messages[0].ID)
	assert.Equal(t, "a", s.DiagramHistory[0].Markup)
}

func TestSessionData_ThumbnailPointer(t *testing.T) {
	s := &Session{ID: "s1"}
	assert.Nil(t, s.Data().Thumbnail)

	s.Thumbnail = "<svg/>"
	d := s.Data()
	if assert.NotNil(t, d.Thumbnail) {
		assert.Equal(t, "<svg/>", *d.Thumbnail)
	}
}

func TestSaveFormat_ExportFormat(t *testing.T) {
	assert.Equal(t, ExportXMLSVG, SaveDrawio.ExportFormat())
	assert.Equal(t, ExportPNG, SavePNG.ExportFormat())
	assert.Equal(t, ExportSVG, SaveSVG.ExportFormat())
	assert.False(t, SaveFormat("pdf").Valid())
}
