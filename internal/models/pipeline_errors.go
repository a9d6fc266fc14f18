package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindUpstream            ErrorKind = "UpstreamError"
	KindMalformedResponse   ErrorKind = "MalformedResponseError"
	KindNoJSONFound         ErrorKind = "NoJsonFoundError"
	KindJSONParse           ErrorKind = "JsonParseError"
	KindInvalidArchitecture ErrorKind = "InvalidArchitectureError"
	KindMissingPrerequisite ErrorKind = "MissingPrerequisiteError"
	KindInternal            ErrorKind = "InternalError"
)

// KindedError is implemented by every pipeline error type.
type KindedError interface {
	error
	Kind() ErrorKind
}

// UpstreamError is returned when the LLM API answers with a non-2xx status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm api returned status %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) Kind() ErrorKind { return KindUpstream }

// Retryable reports whether the status is worth another attempt.
func (e *UpstreamError) Retryable() bool {
	return e.Status == 408 || e.Status == 429 || e.Status >= 500
}

// MalformedResponseError is returned when the response envelope has no text payload.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed llm response: " + e.Reason
}

func (e *MalformedResponseError) Kind() ErrorKind { return KindMalformedResponse }

// NoJSONFoundError is returned when the model output contains no JSON object.
type NoJSONFoundError struct {
	Excerpt string
}

func (e *NoJSONFoundError) Error() string {
	return fmt.Sprintf("no json found in model output: %q", e.Excerpt)
}

func (e *NoJSONFoundError) Kind() ErrorKind { return KindNoJSONFound }

// JSONParseError is returned when extracted JSON still does not parse.
type JSONParseError struct {
	Excerpt string
	Err     error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("failed to parse model json: %v (raw: %q)", e.Err, e.Excerpt)
}

func (e *JSONParseError) Unwrap() error { return e.Err }

func (e *JSONParseError) Kind() ErrorKind { return KindJSONParse }

// InvalidArchitectureError is returned when a stage output misses required fields
// or violates a structural invariant.
type InvalidArchitectureError struct {
	Problems []string
}

func (e *InvalidArchitectureError) Error() string {
	return "invalid architecture: " + strings.Join(e.Problems, "; ")
}

func (e *InvalidArchitectureError) Kind() ErrorKind { return KindInvalidArchitecture }

// MissingPrerequisiteError is returned by the driver when a stage is requested
// before its inputs exist.
type MissingPrerequisiteError struct {
	Stage   int
	Missing []string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("cannot run level %d, missing: %s", e.Stage, strings.Join(e.Missing, ", "))
}

func (e *MissingPrerequisiteError) Kind() ErrorKind { return KindMissingPrerequisite }

// KindOf returns the kind of the first KindedError in err's chain.
func KindOf(err error) ErrorKind {
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	return KindInternal
}

// ErrorCode maps an error kind to the API error code.
func ErrorCode(kind ErrorKind) string {
	switch kind {
	case KindUpstream:
		return ErrCodeUpstream
	case KindMalformedResponse:
		return ErrCodeMalformedResponse
	case KindNoJSONFound:
		return ErrCodeNoJSONFound
	case KindJSONParse:
		return ErrCodeJSONParse
	case KindInvalidArchitecture:
		return ErrCodeInvalidArchitecture
	case KindMissingPrerequisite:
		return ErrCodeMissingPrerequisite
	default:
		return ErrCodeInternalError
	}
}

// Excerpt truncates s for diagnostics.
func Excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
