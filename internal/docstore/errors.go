package docstore

import "errors"

var (
	// ErrStorageUnavailable is returned when the backing file cannot be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMalformedDocument is returned when the backing file cannot be decoded.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrNotFound is returned when no entity of a kind holds the requested id.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported is returned when a shape cannot express the requested write.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrIDMismatch is returned when a body carries an id different from the addressed one.
	ErrIDMismatch = errors.New("id mismatch")
)
