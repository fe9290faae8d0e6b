// Package errors provides standardized error types and helpers for PsalmSlides.
//
// Every failure surfaced by the pipeline belongs to one of four families:
// fetch, malformed verse, encoding and configuration. Each family has a
// sentinel usable with errors.Is and a typed error carrying diagnostics.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrFetch indicates the source text could not be retrieved or parsed
	ErrFetch = errors.New("fetch failed")
	// ErrMalformedVerse indicates verse markup the normalizer cannot classify
	ErrMalformedVerse = errors.New("malformed verse")
	// ErrEncoding indicates an unsupported character in a verse number
	ErrEncoding = errors.New("unsupported character")
	// ErrConfiguration indicates layout parameters that cannot fit any content
	ErrConfiguration = errors.New("invalid configuration")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// FetchError reports a poem whose source page could not be retrieved or
// whose expected structural container is absent.
type FetchError struct {
	Poem       int    // Poem number being fetched
	URL        string // Source URL, if known
	StatusCode int    // HTTP status code, 0 for transport errors
	Reason     string // Human-readable reason
	Err        error  // Underlying error, if any
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch psalm %d", e.Poem)
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFetch, e.Err}
	}
	return []error{ErrFetch}
}

// MalformedVerseError reports verse markup the normalizer cannot classify.
type MalformedVerseError struct {
	Poem   int    // Poem number
	Verse  string // Verse number as found in the source
	Text   string // Raw verse text
	Reason string // What was wrong
	Err    error  // Underlying error, if any
}

func (e *MalformedVerseError) Error() string {
	msg := fmt.Sprintf("psalm %d verse %s: %s (text %q)", e.Poem, e.Verse, e.Reason, e.Text)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedVerseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedVerse, e.Err}
	}
	return []error{ErrMalformedVerse}
}

// EncodingError reports a character outside the superscript table.
type EncodingError struct {
	Input    string // Full input string
	Char     rune   // Offending character
	Position int    // Rune index of the offending character
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %q at position %d of %q as superscript", e.Char, e.Position, e.Input)
}

func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}

// ConfigurationError reports a layout or model parameter that cannot work.
type ConfigurationError struct {
	Field   string  // Configuration field name
	Value   float64 // Offending value
	Message string  // Human-readable explanation
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration %s=%g: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// PoemError attributes any failure to the poem being processed, so one
// poem's failure can be reported and skipped under parallel execution.
type PoemError struct {
	Poem  int    // Poem number
	Stage string // Pipeline stage (fetch, normalize, paginate, assemble)
	Err   error  // Underlying error
}

func (e *PoemError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("psalm %d: %s: %v", e.Poem, e.Stage, e.Err)
	}
	return fmt.Sprintf("psalm %d: %v", e.Poem, e.Err)
}

func (e *PoemError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "file", "page")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewFetch creates a FetchError
func NewFetch(poem int, url, reason string, err error) *FetchError {
	return &FetchError{
		Poem:   poem,
		URL:    url,
		Reason: reason,
		Err:    err,
	}
}

// NewMalformedVerse creates a MalformedVerseError
func NewMalformedVerse(poem int, verse, text, reason string) *MalformedVerseError {
	return &MalformedVerseError{
		Poem:   poem,
		Verse:  verse,
		Text:   text,
		Reason: reason,
	}
}

// NewConfiguration creates a ConfigurationError
func NewConfiguration(field string, value float64, message string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewPoem wraps err with the poem number and stage. If err is nil, returns nil.
func NewPoem(poem int, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &PoemError{Poem: poem, Stage: stage, Err: err}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
