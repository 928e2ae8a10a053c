package storage

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrInvalidData      = errors.New("invalid data")
	ErrStorageInit      = errors.New("storage initialization failed")
	ErrFileOperation    = errors.New("file operation failed")
)
