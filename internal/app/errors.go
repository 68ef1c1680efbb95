package app

import (
	"errors"
	"fmt"

	"tasnes/internal/movie"
)

var (
	// ErrNoROM means the command needs a selected ROM.
	ErrNoROM = movie.ErrNoROM

	// ErrNotPoweredOn means the command needs a running session.
	ErrNotPoweredOn = errors.New("no powered-on session")
)

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// PreconditionError is a user action refused because the frontend is not
// in the required state. Nothing was changed.
type PreconditionError struct {
	Operation string
	Err       error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Operation, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
