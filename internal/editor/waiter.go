package editor

import (
	"fmt"

	"drawflow-backend/internal/model"
)

// Role identifies which caller an export was requested for.
type Role int

const (
	RoleThumbnail Role = iota
	RoleValidation
	RoleSave

	roleCount
)

func (r Role) String() string {
	switch r {
	case RoleThumbnail:
		return "thumbnail"
	case RoleValidation:
		return "validation"
	case RoleSave:
		return "save"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

type result struct {
	payload string
	err     error
}

// waiter is a one-shot slot; the first settle wins.
type waiter struct {
	role Role
	// format is only meaningful for RoleSave.
	format model.SaveFormat
	ch     chan result
}

func newWaiter(role Role, format model.SaveFormat) *waiter {
	return &waiter{role: role, format: format, ch: make(chan result, 1)}
}

func (w *waiter) settle(r result) {
	select {
	case w.ch <- r:
	default:
	}
}

func (w *waiter) resolve(payload string) {
	w.settle(result{payload: payload})
}

func (w *waiter) reject(err error) {
	w.settle(result{err: err})
}
