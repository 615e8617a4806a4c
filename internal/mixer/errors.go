package mixer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for out-of-range gains, channel counts
	// and empty names.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPortOperation is returned when the engine rejects a port
	// register/unregister call.
	ErrPortOperation = errors.New("port operation failed")
	// ErrInternal is returned when the control plane cannot reach the
	// control loop.
	ErrInternal = errors.New("internal error")
)

// UnknownStripError reports a command targeting a strip that is not in the
// registry.
type UnknownStripError struct {
	Name string
}

func (e *UnknownStripError) Error() string {
	return fmt.Sprintf("unknown strip: %s", e.Name)
}

// AlreadyExistsError reports an AddStrip for a name already in use.
type AlreadyExistsError struct {
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("strip already exists: %s", e.Name)
}
