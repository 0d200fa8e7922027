package session

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes persistence context errors.
type ErrorCode string

const (
	// ErrCodeIdentityConflict indicates a second, distinct instance was
	// offered for an identity key that is already occupied.
	ErrCodeIdentityConflict ErrorCode = "IDENTITY_CONFLICT"

	// ErrCodeNotManaged indicates the target entity is not tracked by this
	// context.
	ErrCodeNotManaged ErrorCode = "NOT_MANAGED"

	// ErrCodePersisterFailure indicates the persister failed during flush.
	ErrCodePersisterFailure ErrorCode = "PERSISTER_FAILURE"

	// ErrCodeInvalidState indicates an operation that the entity's current
	// lifecycle state (or a closed session) does not allow.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeInvalidKey indicates a missing, unconvertible or altered
	// primary key.
	ErrCodeInvalidKey ErrorCode = "INVALID_KEY"

	// ErrCodeInvalidEntity indicates a nil entity, a non-pointer entity or a
	// schema that does not fit the entity.
	ErrCodeInvalidEntity ErrorCode = "INVALID_ENTITY"
)

// Error is returned by every PersistenceContext operation that fails.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Type is the entity type involved, when known.
	Type string

	// Key is the rendered identity key involved, when known.
	Key string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key=%s)", e.Key)
	} else if e.Type != "" {
		msg += fmt.Sprintf(" (type=%s)", e.Type)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsIdentityConflict reports whether err is an IDENTITY_CONFLICT error.
func IsIdentityConflict(err error) bool {
	return hasCode(err, ErrCodeIdentityConflict)
}

// IsNotManaged reports whether err is a NOT_MANAGED error.
func IsNotManaged(err error) bool {
	return hasCode(err, ErrCodeNotManaged)
}

// IsPersisterFailure reports whether err is a PERSISTER_FAILURE error.
func IsPersisterFailure(err error) bool {
	return hasCode(err, ErrCodePersisterFailure)
}

// IsInvalidState reports whether err is an INVALID_STATE error.
func IsInvalidState(err error) bool {
	return hasCode(err, ErrCodeInvalidState)
}

// IsInvalidKey reports whether err is an INVALID_KEY error.
func IsInvalidKey(err error) bool {
	return hasCode(err, ErrCodeInvalidKey)
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func newIdentityConflict(key Key) *Error {
	return &Error{
		Code:    ErrCodeIdentityConflict,
		Message: "a different instance is already tracked under this key",
		Type:    key.Type,
		Key:     key.String(),
	}
}

func newNotManaged(entity any) *Error {
	return &Error{
		Code:    ErrCodeNotManaged,
		Message: fmt.Sprintf("entity %T is not tracked by this session", entity),
	}
}

func newInvalidState(key Key, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf(format, args...),
		Type:    key.Type,
		Key:     key.String(),
	}
}

func newPersisterFailure(n int, err error) *Error {
	return &Error{
		Code:    ErrCodePersisterFailure,
		Message: fmt.Sprintf("persister failed executing %d actions", n),
		Err:     err,
	}
}

var errClosed = &Error{Code: ErrCodeInvalidState, Message: "session is closed"}
