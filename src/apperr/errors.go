// Package apperr defines the error taxonomy surfaced by the import lifecycle
// and its collaborators. Callers must be able to tell a missing resource from
// an illegal lifecycle transition, so each kind is a distinct type.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a referenced import, trade or document does not
// exist.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
}

// NotFound builds a NotFoundError for the given resource and identifier.
func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// InvalidStateError reports an operation that is not legal for the import's
// current lifecycle status, e.g. generating documents before consolidation or
// pushing twice.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// InvalidState builds an InvalidStateError for the given operation.
func InvalidState(op, reason string) error {
	return &InvalidStateError{Op: op, Reason: reason}
}

func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

// ValidationError reports malformed input, e.g. an unparseable side,
// quantity or price in a CSV row, or an unknown consolidation criteria.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// AggregationError reports a failure while packing generated documents into
// a downloadable archive.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("archive packing failed: %v", e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// Aggregation wraps an archive packing failure.
func Aggregation(err error) error {
	return &AggregationError{Err: err}
}

func IsAggregation(err error) bool {
	var target *AggregationError
	return errors.As(err, &target)
}
