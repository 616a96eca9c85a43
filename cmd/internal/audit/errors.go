package audit

import "errors"

var (
	// ErrClosed is returned once the dispatcher has been closed.
	ErrClosed = errors.New("audit dispatcher closed")

	errWriterPanic = errors.New("audit writer panicked")
)
