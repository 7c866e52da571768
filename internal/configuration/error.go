package configuration

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is returned for configuration values out of their range.
var ErrInvalidValue = errors.New("invalid configuration value")

// ValueError describes a configuration value that could not be used.
type ValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *ValueError) Unwrap() []error {
	return []error{ErrInvalidValue, e.Err}
}
