// Package errors provides custom error types for boardsync.
// These errors enable programmatic error checking with errors.Is and
// keep failure handling local: nothing here is fatal to a merge run.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for boardsync.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenRequired indicates that an API token is required but not provided.
	ErrTokenRequired = errors.New("API token required")

	// ErrRateLimited indicates that the board API rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates that the board API is temporarily unavailable.
	ErrUnavailable = errors.New("board API unavailable")

	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = errors.New("operation canceled")

	// ErrNotImplemented indicates that a feature is not implemented.
	ErrNotImplemented = errors.New("not implemented")
)

// NotFoundError represents an error when a resource is not found.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// APIError represents an error returned by the board API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("board API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("board API error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError creates a new APIError.
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
	}
}

// WriteError represents a rejected create or column write against the
// target board. Field is empty for record-level (create) failures.
type WriteError struct {
	BoardID string
	ItemID  string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("write to column %s of item %s on board %s failed: %v", e.Field, e.ItemID, e.BoardID, e.Err)
	}
	return fmt.Sprintf("write of item %s on board %s failed: %v", e.ItemID, e.BoardID, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewWriteError creates a new WriteError.
func NewWriteError(boardID, itemID, field string, err error) *WriteError {
	return &WriteError{BoardID: boardID, ItemID: itemID, Field: field, Err: err}
}

// TransformError represents a transform that could not produce a value
// from malformed input. Non-fatal: the field is skipped.
type TransformError struct {
	Transform string
	Column    string
	Message   string
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("transform %s on column %s: %s", e.Transform, e.Column, e.Message)
	}
	return fmt.Sprintf("transform %s: %s", e.Transform, e.Message)
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError represents an error when parsing data formats.
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations.
type IOError struct {
	Operation string // "read", "write", "create", "open"
	Path      string
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking.

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnavailable checks if an error indicates board API unavailability.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns.

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapWrite wraps an error as a WriteError.
func WrapWrite(boardID, itemID, field string, err error) error {
	if err == nil {
		return nil
	}
	return NewWriteError(boardID, itemID, field, err)
}
