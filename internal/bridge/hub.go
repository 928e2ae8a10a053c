// Package bridge carries editor commands to the embedded editor. Hub pushes
// them to the page hosting the editor over a server-sent event stream;
// Loopback answers them in-process for headless use.
package bridge

import (
	"context"
	"sync"

	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"

	"github.com/google/uuid"
)

const (
	CommandLoad   = "load"
	CommandExport = "export"
)

// Command is one instruction for the editor page.
type Command struct {
	Type   string             `json:"type"`
	XML    string             `json:"xml,omitempty"`
	Format model.ExportFormat `json:"format,omitempty"`
}

// Lifecycle is told when the mounted editor goes away.
type Lifecycle interface {
	OnTeardown()
}

// Stream is the command feed of one editor mount.
type Stream struct {
	ID string

	ch   chan Command
	done chan struct{}
	once sync.Once
}

func (s *Stream) Commands() <-chan Command { return s.ch }

// Done is closed when the stream is replaced by a newer mount or detached.
func (s *Stream) Done() <-chan struct{} { return s.done }

func (s *Stream) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub implements editor.Bridge over at most one attached stream. Attaching
// a new stream counts as a remount of the editor.
type Hub struct {
	buffer int

	mu        sync.Mutex
	stream    *Stream
	lifecycle Lifecycle
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{buffer: buffer}
}

// SetLifecycle registers the receiver of teardown notifications.
func (h *Hub) SetLifecycle(l Lifecycle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lifecycle = l
}

// Attach opens a stream for a newly mounted editor, closing the previous one.
func (h *Hub) Attach() *Stream {
	s := &Stream{
		ID:   uuid.NewString(),
		ch:   make(chan Command, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	old := h.stream
	h.stream = s
	l := h.lifecycle
	h.mu.Unlock()

	if old != nil {
		old.close()
		logger.Infof("bridge: editor stream %s replaced by %s", old.ID, s.ID)
	} else {
		logger.Infof("bridge: editor stream %s attached", s.ID)
	}
	if l != nil {
		l.OnTeardown()
	}
	return s
}

// Detach closes s. It is a no-op when s has already been replaced.
func (h *Hub) Detach(s *Stream) {
	h.mu.Lock()
	current := h.stream == s
	if current {
		h.stream = nil
	}
	l := h.lifecycle
	h.mu.Unlock()

	s.close()
	if !current {
		return
	}
	logger.Infof("bridge: editor stream %s detached", s.ID)
	if l != nil {
		l.OnTeardown()
	}
}

// Current reports the id of the attached stream, or "".
func (h *Hub) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stream == nil {
		return ""
	}
	return h.stream.ID
}

func (h *Hub) Connected() bool {
	return h.Current() != ""
}

func (h *Hub) Load(ctx context.Context, markup string) error {
	return h.send(ctx, Command{Type: CommandLoad, XML: markup})
}

func (h *Hub) ExportDiagram(ctx context.Context, format model.ExportFormat) error {
	return h.send(ctx, Command{Type: CommandExport, Format: format})
}

func (h *Hub) send(ctx context.Context, cmd Command) error {
	h.mu.Lock()
	s := h.stream
	h.mu.Unlock()

	if s == nil {
		return editor.ErrNotConnected
	}

	select {
	case s.ch <- cmd:
		return nil
	case <-s.done:
		return editor.ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}
