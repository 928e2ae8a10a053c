package service

import (
	"errors"
	"fmt"

	"drawflow-backend/internal/storage"
)

var (
	ErrValidationDisabled   = errors.New("diagram validation is not configured")
	ErrValidationSuperseded = errors.New("validation superseded by a newer request")
)

// NotFoundError reports a session id the store does not know. It matches
// storage.ErrSessionNotFound with errors.Is.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == storage.ErrSessionNotFound
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
