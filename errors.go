package authd

import "errors"

var (
	// ErrNotFound is returned when a stored object is not found
	ErrNotFound = errors.New("not found")
	// ErrStorageWrite is returned when a storage backend fails to persist content
	ErrStorageWrite = errors.New("storage write failed")
	// ErrUnsupportedMedia is returned when an upload's content type is not allowed
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authorization fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
