package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrUnavailable  = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrItemNotFound = fmt.Errorf("item: %w", ErrNotFound)
	ErrInvalidItem  = fmt.Errorf("item document: %w", ErrInvalidInput)
	// ErrNoAssets is returned when an operation names neither assets nor
	// an expression that resolves to at least one asset.
	ErrNoAssets = fmt.Errorf("assets must be passed either via expression or assets options: %w", ErrInvalidInput)
	// ErrReaderClosed is returned by operations on a closed reader.
	ErrReaderClosed = fmt.Errorf("reader is closed: %w", ErrUnavailable)
)

// UnknownAssetError reports a requested asset name that is not in the
// reader's eligible asset list. Names present in the raw item but
// filtered out at open time are unknown too.
type UnknownAssetError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownAssetError) Error() string {
	return fmt.Sprintf("%s is not a valid asset name", e.Name)
}

// Unwrap returns the underlying error type.
func (e *UnknownAssetError) Unwrap() error {
	return ErrInvalidInput
}

// FetchError reports a failure to retrieve or parse an item document.
type FetchError struct {
	Location string // The location string that was fetched
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Location, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ReadError reports a failed per-asset read. It fails the whole fan-out
// it occurred in; no partial result is returned.
type ReadError struct {
	Href      string // Asset location
	Operation string // Operation that failed (tile, part, point, ...)
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("%s read failed for %s: %v", e.Operation, e.Href, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error type.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
