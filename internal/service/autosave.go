package service

import (
	"context"
	"sync"
	"time"

	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"
)

// SaveRequest is a pending write of the caller's chat state. Token is the
// session the caller saw when it made the request.
type SaveRequest struct {
	Messages     []model.Message
	XMLSnapshots []model.XMLSnapshot
	Token        *SessionToken
}

// Autosaver debounces saves: only the latest request is committed, delay
// after the last Schedule.
type Autosaver struct {
	delay  time.Duration
	commit func(ctx context.Context, req SaveRequest) error

	mu      sync.Mutex
	timer   *time.Timer
	pending *SaveRequest
}

func NewAutosaver(delay time.Duration, commit func(ctx context.Context, req SaveRequest) error) *Autosaver {
	if delay <= 0 {
		delay = time.Second
	}
	return &Autosaver{delay: delay, commit: commit}
}

func (a *Autosaver) Schedule(req SaveRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = &req
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *Autosaver) fire() {
	if err := a.Flush(context.Background()); err != nil {
		logger.Warnf("Autosave failed: %v", err)
	}
}

// Flush commits the pending request now, if any.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	req := a.pending
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	if req == nil {
		return nil
	}
	return a.commit(ctx, *req)
}

func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Stop drops the pending request.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
