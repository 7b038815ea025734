package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidInput marks client-input errors
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks lookups that matched nothing
	ErrNotFound = errors.New("not found")
)

// ValidationError is a client-input error with a human-readable message.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

func missingFields(fields []string) error {
	return &ValidationError{
		Message: "Missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}
