package adapter

import (
	"fmt"
)

// ErrAdapterNotFound is returned when the requested adapter is not
// registered.
type ErrAdapterNotFound struct {
	Name string
}

func (e ErrAdapterNotFound) Error() string {
	return fmt.Sprintf("adapter '%s' not found in registry\nHint: ensure the adapter is registered before usage", e.Name)
}

// ErrAlreadyRegistered is returned when an adapter name is registered twice.
type ErrAlreadyRegistered struct {
	Name string
}

func (e ErrAlreadyRegistered) Error() string {
	return fmt.Sprintf("adapter '%s' already registered\nHint: adapter names must be unique per registry", e.Name)
}
