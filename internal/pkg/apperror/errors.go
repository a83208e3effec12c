// internal/pkg/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies domain failures so transports can map them consistently
type Kind string

const (
	KindValidation      Kind = "validation"
	KindStateTransition Kind = "state_transition"
	KindNotFound        Kind = "not_found"
	KindConsistency     Kind = "consistency"
)

// Error is the common domain error
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a validation error attached to a field
func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// StateTransition returns an error for a forbidden status change
func StateTransition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStateTransition, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns an error for a missing entity
func NotFound(entity string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Consistency returns an error for a broken ledger invariant
func Consistency(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConsistency, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError is returned when an outbound movement would drive stock below zero
type InsufficientStockError struct {
	ProductID uint
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

// ReturnQuantityExceededError is returned when a return asks for more units than were transacted
type ReturnQuantityExceededError struct {
	ProductID uint
	Allowed   int
	Requested int
}

func (e *ReturnQuantityExceededError) Error() string {
	return fmt.Sprintf("return quantity %d exceeds the %d units still returnable for product %d", e.Requested, e.Allowed, e.ProductID)
}

// FromDB turns gorm.ErrRecordNotFound into a NotFound error and wraps anything else
func FromDB(err error, entity string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(entity, id)
	}
	return fmt.Errorf("failed to load %s %v: %w", entity, id, err)
}

// KindOf reports the kind of err, or "" for infrastructure failures
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return KindValidation
	}

	var returnErr *ReturnQuantityExceededError
	if errors.As(err, &returnErr) {
		return KindValidation
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FieldOf returns the offending field of a validation error, if any
func FieldOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return "quantity"
	}
	var returnErr *ReturnQuantityExceededError
	if errors.As(err, &returnErr) {
		return "quantity"
	}
	return ""
}

// HTTPStatus maps an error to a response status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindStateTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
