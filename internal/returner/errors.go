package returner

import (
	"fmt"
)

// ErrReturnerNotFound is returned when the requested returner is not
// registered.
type ErrReturnerNotFound struct {
	Name string
}

func (e ErrReturnerNotFound) Error() string {
	return fmt.Sprintf("returner '%s' not found in registry\nHint: configure it under the 'returner.%s' secure-config namespace", e.Name, e.Name)
}

// ErrReturnerAlreadyRegistered is returned when a returner name is
// registered twice.
type ErrReturnerAlreadyRegistered struct {
	Name string
}

func (e ErrReturnerAlreadyRegistered) Error() string {
	return fmt.Sprintf("returner '%s' already registered\nHint: returner names must be unique per registry", e.Name)
}
