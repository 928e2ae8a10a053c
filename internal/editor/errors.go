package editor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConnected      = errors.New("editor not connected")
	ErrUnsupportedFormat = errors.New("unsupported save format")
)

type ErrorCode string

const (
	CodeTimeout    ErrorCode = "TIMEOUT"
	CodeSuperseded ErrorCode = "SUPERSEDED"
)

// ExportError rejects an export waiter. Both codes are soft: callers fall
// back to a benign result instead of surfacing them.
type ExportError struct {
	Code ErrorCode
	Role Role
	Err  error
}

func (e *ExportError) Error() string {
	switch e.Code {
	case CodeTimeout:
		if e.Err != nil {
			return fmt.Sprintf("%s export timed out: %v", e.Role, e.Err)
		}
		return fmt.Sprintf("%s export timed out", e.Role)
	case CodeSuperseded:
		return fmt.Sprintf("%s export superseded by a newer request", e.Role)
	default:
		return fmt.Sprintf("%s export failed: %s", e.Role, e.Code)
	}
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func IsTimeout(err error) bool {
	var ee *ExportError
	return errors.As(err, &ee) && ee.Code == CodeTimeout
}

func IsSuperseded(err error) bool {
	var ee *ExportError
	return errors.As(err, &ee) && ee.Code == CodeSuperseded
}

// ValidationError describes markup that was refused by LoadDiagram. It is
// returned as a value; the caller decides whether to block on it.
type ValidationError struct {
	Message string   `json:"error"`
	Fixes   []string `json:"fixes,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fixes) == 0 {
		return e.Message
	}
	return e.Message + " (after fixes: " + strings.Join(e.Fixes, "; ") + ")"
}
