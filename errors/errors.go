// Package errors provides error handling for entorm.
//
// This package re-exports github.com/cockroachdb/errors so every layer
// (query compilation, statement execution, entity lifecycle) wraps errors
// the same way and keeps stack traces and hints intact:
//
//	if err := exec.Update(ctx, stmt); err != nil {
//	    return errors.Wrapf(err, "update %s", table)
//	}
//
//	if errors.Is(err, errors.ErrUnknownField) {
//	    // caller used a field the schema does not declare
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinel errors shared across entorm.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested row does not exist
	ErrNotFound = New("not found")

	// ErrUnsupportedOperation is returned when a read-only value is mutated
	ErrUnsupportedOperation = New("unsupported operation")

	// ErrUnknownField indicates a field key the entity schema does not declare
	ErrUnknownField = New("unknown field")

	// ErrUnknownEntityType indicates an entity type that was never registered
	ErrUnknownEntityType = New("unknown entity type")

	// ErrInvalidSchema indicates a schema declaration that cannot be registered
	ErrInvalidSchema = New("invalid schema")

	// ErrInvalidIdentifier indicates a table or column name that is unsafe to splice into SQL
	ErrInvalidIdentifier = New("invalid identifier")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsUnsupportedOperation checks if an error is or wraps ErrUnsupportedOperation.
func IsUnsupportedOperation(err error) bool {
	return err != nil && Is(err, ErrUnsupportedOperation)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewUnknownFieldError reports a field key that is not part of the named entity type.
func NewUnknownFieldError(entityType, field string) error {
	return WithHintf(Wrapf(ErrUnknownField, "%s.%s", entityType, field),
		"declare %q in the %s schema before using it", field, entityType)
}

// NewInvalidSchemaError creates an invalid-schema error with a formatted message
func NewInvalidSchemaError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidSchema, Newf(format, args...).Error())
}
