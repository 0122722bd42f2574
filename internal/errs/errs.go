// Package errs implements the engine's error taxonomy: every error that
// crosses a component boundary is classified into one of a fixed set of
// kinds so the retry controller and the orchestrator can react to it
// without inspecting error strings.
package errs

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// Kind classifies why a node invocation failed.
type Kind string

const (
	// Validation means an input, parameter, or output failed schema
	// checking. Never retryable.
	Validation Kind = "validation"
	// Configuration means wiring is missing or invalid: absent
	// credentials, an unwired required input, an unsupported runner
	// kind. Never retryable.
	Configuration Kind = "configuration"
	// Service means an external API returned failure or a malformed
	// response. Retryable by default.
	Service Kind = "service"
	// Container means a Docker lifecycle or runtime failure, excluding
	// a tool's own signaled findings exit. Retryable by default.
	Container Kind = "container"
	// Unknown is anything unclassified. Retryable by default.
	Unknown Kind = "unknown"
)

// defaultRetryable gives each kind its default retry posture.
func (k Kind) defaultRetryable() bool {
	switch k {
	case Validation, Configuration:
		return false
	default:
		return true
	}
}

// Error is the single error type that crosses a component boundary.
type Error struct {
	Kind        Kind
	Message     string
	Cause       error
	Details     map[string]interface{}
	FieldErrors map[string][]string
	retryable   *bool
}

// New creates a classified error with the kind's default retryability.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error chaining an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails attaches JSON-safe contextual details and returns the
// receiver for chaining. Callers must never put secret values here.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithFieldErrors attaches path->messages validation failures.
func (e *Error) WithFieldErrors(fieldErrors map[string][]string) *Error {
	e.FieldErrors = fieldErrors
	return e
}

// WithRetryable overrides the kind's default retryability, e.g. for a
// cancellation surfaced as Container but explicitly non-retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.retryable = &retryable
	return e
}

// Retryable reports whether the retry controller should attempt this
// invocation again, absent any component-level nonRetryableErrorKinds
// override (applied by the retry controller, not here).
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.Kind.defaultRetryable()
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap enables errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var target *Error
	if ok := asError(err, &target); ok {
		return target, true
	}
	return nil, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// KindOf classifies an arbitrary error: an *Error keeps its kind, anything
// else is Unknown. This is the "classification is a pure function of the
// thrown value" rule.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Unknown
}

// IsRetryable reports whether err should be retried, ignoring any
// component-specific nonRetryableErrorKinds policy.
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable()
	}
	return true
}

// FieldErrorList aggregates per-field validation failures collected across
// an entire schema tree walk into a single Validation error. An internal
// go-multierror list backs HasErrors, and ToError carries the
// path->messages map in the resulting error's FieldErrors.
type FieldErrorList struct {
	errs   *multierror.Error
	fields map[string][]string
}

// NewFieldErrorList creates an empty aggregator.
func NewFieldErrorList() *FieldErrorList {
	return &FieldErrorList{fields: map[string][]string{}}
}

// Add records a failure for the given field path.
func (l *FieldErrorList) Add(field, message string) {
	l.errs = multierror.Append(l.errs, fmt.Errorf("%s: %s", field, message))
	l.fields[field] = append(l.fields[field], message)
}

// HasErrors reports whether any field failure was recorded.
func (l *FieldErrorList) HasErrors() bool {
	return l.errs != nil && l.errs.Len() > 0
}

// ToError converts the aggregator into a single Validation *Error, or nil
// if nothing was recorded.
func (l *FieldErrorList) ToError(message string) *Error {
	if !l.HasErrors() {
		return nil
	}
	return New(Validation, message).WithFieldErrors(l.fields)
}
