// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRecordNotFound indicates no pathway record matched the given identifier.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUniqueViolation indicates a row with the same unique key already exists.
	ErrUniqueViolation = errors.New("unique key violation")
)

// ForeignKeyViolationError reports an insert referencing a missing parent row.
type ForeignKeyViolationError struct {
	Constraint string
	Err        error
}

func (e *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("foreign key violation on constraint %s: %v", e.Constraint, e.Err)
}

func (e *ForeignKeyViolationError) Unwrap() error {
	return e.Err
}

// RecordError wraps record-related errors with additional context.
type RecordError struct {
	Op       string // Operation being performed (e.g., "Insert", "FileUploadPath")
	RecordID string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for record %s: %v", e.Op, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError creates a new record error with context.
func NewRecordError(op, recordID string, err error) *RecordError {
	return &RecordError{Op: op, RecordID: recordID, Err: err}
}

// IsRecordNotFound checks if an error indicates a record was not found.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsUniqueViolation checks if an error is a duplicate key violation.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation checks if an error is a foreign key violation and returns it.
func IsForeignKeyViolation(err error) (*ForeignKeyViolationError, bool) {
	var fkErr *ForeignKeyViolationError
	if errors.As(err, &fkErr) {
		return fkErr, true
	}

	return nil, false
}
