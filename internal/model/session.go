package model

import (
	"strings"
	"time"
)

// DefaultSessionTitle is the placeholder title a session keeps until its
// first message produces a better one.
const DefaultSessionTitle = "New Chat"

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// XMLSnapshot records the diagram markup as it was after message Index.
type XMLSnapshot struct {
	Index int    `json:"index"`
	XML   string `json:"xml"`
}

type Session struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Messages       []Message      `json:"messages"`
	XMLSnapshots   []XMLSnapshot  `json:"xml_snapshots"`
	DiagramXML     string         `json:"diagram_xml"`
	DiagramHistory []HistoryEntry `json:"diagram_history,omitempty"`
	Thumbnail      string         `json:"thumbnail,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SessionMetadata is the list-view summary of a Session.
type SessionMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	HasDiagram   bool      `json:"has_diagram"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
}

func (s *Session) Metadata() SessionMetadata {
	return SessionMetadata{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
		HasDiagram:   strings.TrimSpace(s.DiagramXML) != "",
		Thumbnail:    s.Thumbnail,
	}
}

// Clone returns a deep copy so callers never share slices with the owner.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.XMLSnapshots = append([]XMLSnapshot(nil), s.XMLSnapshots...)
	if s.DiagramHistory != nil {
		c.DiagramHistory = append([]HistoryEntry(nil), s.DiagramHistory...)
	}
	return &c
}

// SessionData is the plain snapshot exchanged with callers when hydrating a
// view or persisting one. A nil Thumbnail or DiagramHistory means the field
// was not supplied.
type SessionData struct {
	Messages       []Message      `json:"messages"`
	XMLSnapshots   []XMLSnapshot  `json:"xml_snapshots"`
	DiagramXML     string         `json:"diagram_xml"`
	Thumbnail      *string        `json:"thumbnail,omitempty"`
	DiagramHistory []HistoryEntry `json:"diagram_history,omitempty"`
}

// Data converts the session into the snapshot handed to callers.
func (s *Session) Data() *SessionData {
	c := s.Clone()
	d := &SessionData{
		Messages:       c.Messages,
		XMLSnapshots:   c.XMLSnapshots,
		DiagramXML:     c.DiagramXML,
		DiagramHistory: c.DiagramHistory,
	}
	if c.Thumbnail != "" {
		thumb := c.Thumbnail
		d.Thumbnail = &thumb
	}
	return d
}
