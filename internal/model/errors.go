package model

import (
	"errors"
	"fmt"
)

// Sentinel errors of the defensys error taxonomy.
// Only ErrInputFormat and ErrNotTrained are fatal to callers; service and
// per-record failures are recovered where they happen.
var (
	// ErrInputFormat is the sentinel matched by every InputFormatError.
	ErrInputFormat = errors.New("unsupported input format")

	// ErrNotTrained is returned when predict, save or feature importance is
	// requested before a model has been trained or loaded.
	ErrNotTrained = errors.New("model is not trained: call Train or Load first")

	// ErrExternalService is the sentinel matched by every ExternalServiceError.
	ErrExternalService = errors.New("external service failure")

	// ErrMalformedRecord is the sentinel matched by every MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
)

// InputFormatError reports an input whose type or shape cannot be
// preprocessed. The caller must fix the input.
type InputFormatError struct {
	// Reason describes what was wrong with the input.
	Reason string

	// Accepted lists the formats the entry point understands.
	Accepted string
}

// Error implements the error interface.
func (e *InputFormatError) Error() string {
	if e.Accepted == "" {
		return fmt.Sprintf("%s: %s", ErrInputFormat, e.Reason)
	}
	return fmt.Sprintf("%s: %s (accepted: %s)", ErrInputFormat, e.Reason, e.Accepted)
}

// Is makes errors.Is(err, ErrInputFormat) succeed.
func (e *InputFormatError) Is(target error) bool {
	return target == ErrInputFormat
}

// NewInputFormatError returns an InputFormatError with the given reason and
// accepted formats.
func NewInputFormatError(reason, accepted string) *InputFormatError {
	return &InputFormatError{Reason: reason, Accepted: accepted}
}

// ExternalServiceError wraps a failure talking to a third-party service.
// It never reaches the caller of the reputation enricher; it is recorded in
// the degraded result and logged.
type ExternalServiceError struct {
	// Service is a short name of the remote service (e.g. "phishtank").
	Service string

	// StatusCode is the HTTP status returned, or 0 when no response arrived.
	StatusCode int

	// Err is the underlying transport or decoding error, if any.
	Err error
}

// Error implements the error interface.
func (e *ExternalServiceError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: %s returned status %d: %v", ErrExternalService, e.Service, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrExternalService, e.Service, e.Err)
	default:
		return fmt.Sprintf("%s: %s returned status %d", ErrExternalService, e.Service, e.StatusCode)
	}
}

// Unwrap returns the underlying error.
func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExternalService) succeed.
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalService
}

// MalformedRecordError reports a single unparsable value inside a batch,
// such as an invalid IP address or URL. Extractors recover from it by
// substituting the documented zero/false fallback.
type MalformedRecordError struct {
	// Field is the name of the offending field.
	Field string

	// Value is the raw value that failed to parse.
	Value string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s: field %q has unparsable value %q", ErrMalformedRecord, e.Field, e.Value)
}

// Is makes errors.Is(err, ErrMalformedRecord) succeed.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
