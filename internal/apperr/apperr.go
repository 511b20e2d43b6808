// Package apperr defines the error kinds shared by the inspection core.
//
// Every error returned to a caller carries one of four marks: validation,
// not found, conflict or external dependency. Marks survive wrapping, so
// callers classify with errors.Is or KindOf no matter how much context was
// added on the way up.
package apperr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind markers. Use with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrExternalDependency = errors.New("external dependency unavailable")
)

type Kind string

const (
	KindUnknown            Kind = "unknown"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindExternalDependency Kind = "external_dependency"
)

// Validation returns an error marked as a validation failure.
func Validation(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// NotFound returns an error marked as a missing resource.
func NotFound(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// Conflict returns an error marked as a state conflict.
func Conflict(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConflict)
}

// ExternalDependency wraps a collaborator failure. These are retryable.
func ExternalDependency(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrExternalDependency)
}

// AsValidation marks an existing error value as a validation failure, keeping
// its concrete type available to errors.As.
func AsValidation(err error) error {
	return errors.Mark(err, ErrValidation)
}

// FieldErrors maps request fields to a human readable problem.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, f[k])
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// Fields returns a validation error carrying per-field messages. Returns nil
// when f is empty.
func Fields(f FieldErrors) error {
	if len(f) == 0 {
		return nil
	}
	return AsValidation(f)
}

// FieldsOf extracts per-field messages from err, if any.
func FieldsOf(err error) map[string]string {
	var f FieldErrors
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrExternalDependency):
		return KindExternalDependency
	default:
		return KindUnknown
	}
}

// Retryable reports whether a later attempt may succeed.
func Retryable(err error) bool {
	return KindOf(err) == KindExternalDependency
}

