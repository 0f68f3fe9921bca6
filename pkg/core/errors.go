package core

import (
	"errors"
	"fmt"
)

// Error categories. Lower layers wrap these with context; callers match with errors.Is.
var (
	// ErrIO is returned when a file cannot be created, opened, read or written.
	ErrIO = errors.New("io error")

	// ErrDecode is returned for a malformed or schema-incompatible path document.
	ErrDecode = errors.New("decode error")

	// ErrEncode is returned when a path cannot be represented in the file schema.
	ErrEncode = errors.New("encode error")

	// ErrTransport is returned for publish, subscribe and dispatch failures.
	ErrTransport = errors.New("transport error")

	// ErrRecorderClosed is returned when appending to a finalized recorder.
	ErrRecorderClosed = errors.New("recorder closed")
)

// InvalidArgumentsError reports the wrong number of positional arguments.
type InvalidArgumentsError struct {
	Count int
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid number of arguments: expected 1 argument got %d", e.Count)
}
