package services

import (
	"fmt"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

// Kind classifies domain failures so transports can map them to status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindConflict
	KindAuth
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFoundError"
	case KindInvalidState:
		return "InvalidStateError"
	case KindConflict:
		return "ConflictError"
	case KindAuth:
		return "AuthError"
	case KindForbidden:
		return "ForbiddenError"
	}
	return "InternalError"
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func NotFoundError(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func InvalidStateError(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

func ConflictError(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func AuthError(format string, args ...any) error {
	return newError(KindAuth, format, args...)
}

func ForbiddenError(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// notFoundOr turns gorm.ErrRecordNotFound into a NotFoundError and wraps anything else.
func notFoundOr(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError("%s %d not found", what, id)
	}
	return errors.Wrapf(err, "load %s %d", what, id)
}
