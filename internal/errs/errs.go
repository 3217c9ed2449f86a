// Package errs defines the error taxonomy shared by services and handlers.
//
// Validation, not-found and authorization errors are expected control flow
// and are translated into user-facing responses at the handler boundary.
// Persistence errors wrap the underlying driver failure; the wrapped detail
// is logged server-side and never shown to callers.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmailTaken is returned by registration when the email already exists.
var ErrEmailTaken = errors.New("email already registered")

// ValidationError aggregates every complaint found in a payload.
// Validation never fails fast; all problems are collected before returning.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, ", ")
}

// Validation builds a ValidationError from the collected complaints.
func Validation(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// NotFoundError signals that a resource id did not resolve.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError for the given resource and id.
func NotFound(resource string, id uint) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AuthorizationError signals a session that is present but does not own
// the resource it is trying to touch.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "access denied: " + e.Reason
}

// Authorization builds an AuthorizationError.
func Authorization(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

// PersistenceError wraps any store-level failure. Callers see only a
// generic message; the original driver error stays attached for logging.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err with the operation that produced it.
func Persistence(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Problems returns the aggregated complaints when err is a ValidationError.
func Problems(err error) []string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Problems
	}
	return nil
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var v *AuthorizationError
	return errors.As(err, &v)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var v *PersistenceError
	return errors.As(err, &v)
}
