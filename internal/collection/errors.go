package collection

import (
	"errors"
	"fmt"
	"strings"
)

// Error is returned by every Store operation that fails.
//
// Not-Found, Missing-Field and Invalid-Argument errors indicate caller
// mistakes and are always returned. Backend-Failure errors come from the
// Strategy and are subject to the store's CRUD failure policy.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Entity names the store's entity.
	Entity string

	// ID is the record involved, if any.
	ID string

	// Fields lists the absent fields for MISSING_FIELD.
	Fields []string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the record id is not in the local store.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeMissingField indicates a requested field is absent from a record.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeInvalidArgument indicates a malformed argument or DTO.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeBackendFailure indicates the CRUD strategy rejected an operation.
	ErrCodeBackendFailure ErrorCode = "BACKEND_FAILURE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var ctx []string
	if e.Entity != "" {
		ctx = append(ctx, "entity="+e.Entity)
	}
	if e.ID != "" {
		ctx = append(ctx, "id="+e.ID)
	}
	if len(e.Fields) > 0 {
		ctx = append(ctx, "fields="+strings.Join(e.Fields, ","))
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFound returns true if err is a NOT_FOUND store error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsMissingField returns true if err is a MISSING_FIELD store error.
func IsMissingField(err error) bool { return hasCode(err, ErrCodeMissingField) }

// IsInvalidArgument returns true if err is an INVALID_ARGUMENT store error.
func IsInvalidArgument(err error) bool { return hasCode(err, ErrCodeInvalidArgument) }

// IsBackendFailure returns true if err is a BACKEND_FAILURE store error.
func IsBackendFailure(err error) bool { return hasCode(err, ErrCodeBackendFailure) }

func newNotFoundError(entity, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Entity:  entity,
		ID:      id,
		Message: "record not found in local store",
	}
}

func newMissingFieldError(entity, id string, fields []string) *Error {
	return &Error{
		Code:    ErrCodeMissingField,
		Entity:  entity,
		ID:      id,
		Fields:  fields,
		Message: "fields not found in local record",
	}
}

func newInvalidArgumentError(entity, id, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf(format, args...),
	}
}

func newBackendError(entity, op, id string, err error) *Error {
	return &Error{
		Code:    ErrCodeBackendFailure,
		Entity:  entity,
		ID:      id,
		Message: op + " failed",
		Err:     err,
	}
}
