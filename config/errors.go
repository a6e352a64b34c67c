package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingKey   = errors.New("missing required key")
	ErrOutOfRange   = errors.New("value out of range")
	ErrTooLong      = errors.New("value too long")
	ErrInvalidValue = errors.New("invalid value")
)

// Error ties a validation problem to the configuration key it was found at.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("config: %s: %v", e.Key, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func keyErr(key string, err error) error {
	return &Error{Key: key, Err: err}
}
