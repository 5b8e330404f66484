package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = fmt.Errorf("%w: category conflict", ErrValidation)
	ErrCollaborator  = errors.New("collaborator error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
)

// Kind classifies an error by the marker it carries.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindCollaborator  Kind = "collaborator"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindUnknown       Kind = "unknown"
)

// ErrorDetails exposes the structured parts of an error built by Wrap.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Cause     error
}

type serviceError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
}

func (e *serviceError) Error() string {
	detail := buildDetail(e.stage, e.operation, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.marker, detail, e.cause)
	}
	return fmt.Sprintf("%v: %s", e.marker, detail)
}

func (e *serviceError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrCollaborator
	}
	return &serviceError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// Details returns the structured view of err. Errors not produced by Wrap
// report their full text as the message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	var se *serviceError
	if errors.As(err, &se) {
		message := se.message
		if message == "" && se.cause != nil {
			message = se.cause.Error()
		}
		return ErrorDetails{
			Kind:      KindOf(err),
			Stage:     se.stage,
			Operation: se.operation,
			Message:   message,
			Cause:     se.cause,
		}
	}
	return ErrorDetails{Kind: KindOf(err), Message: err.Error(), Cause: err}
}

// KindOf reports the most specific marker carried by err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrCollaborator):
		return KindCollaborator
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
