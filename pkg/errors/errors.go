package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures plan validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfigurationError indicates a parameter could not be resolved to a usable
// value from any layer (explicit, secure store, adapter defaults).
type ConfigurationError struct {
	Key     string
	Message string
	Err     error
}

// NewConfigurationError constructs a ConfigurationError for the given key.
func NewConfigurationError(key, message string, err error) error {
	return &ConfigurationError{Key: key, Message: message, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Key != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProbeError represents a failure while reading the current state of a
// target. Probe failures are never silently treated as "absent".
type ProbeError struct {
	Name string
	Err  error
}

// NewProbeError constructs a ProbeError for the named target.
func NewProbeError(name string, err error) error {
	return &ProbeError{Name: name, Err: err}
}

func (e *ProbeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Name != "" {
		return fmt.Sprintf("probe error on %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("probe error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InvocationError represents a transport-level failure while dispatching an
// action to a remote system. It is the error half of a raw outcome, never a
// panic.
type InvocationError struct {
	OpID string
	Err  error
}

// NewInvocationError constructs an InvocationError.
func NewInvocationError(opID string, err error) error {
	return &InvocationError{OpID: opID, Err: err}
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	if e.OpID != "" {
		return fmt.Sprintf("invocation error on %s: %v", e.OpID, e.Err)
	}
	return fmt.Sprintf("invocation error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *InvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AdapterError indicates issues within adapter registration or behavior.
type AdapterError struct {
	Adapter string
	Message string
	Err     error
}

// NewAdapterError constructs an AdapterError for the given adapter type.
func NewAdapterError(adapter string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &AdapterError{Adapter: adapter, Message: message, Err: err}
}

func (e *AdapterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Adapter != "" {
		return fmt.Sprintf("adapter error [%s]: %s", e.Adapter, e.Message)
	}
	return fmt.Sprintf("adapter error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
