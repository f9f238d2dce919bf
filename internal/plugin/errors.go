package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad marks a unit that could not be resolved, refreshed or set up.
	ErrLoad = errors.New("plugin load failed")

	// ErrStartup marks a load aborted because an on_start hook failed.
	ErrStartup = errors.New("plugin startup hook failed")

	// ErrNoLoader is returned when no loader handles a source identity.
	ErrNoLoader = errors.New("no loader for plugin source")
)

// PanicError wraps a value recovered from a panicking hook.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("hook panicked: %v", e.Value)
}
