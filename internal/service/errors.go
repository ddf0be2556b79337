package service

import (
	"errors"
	"fmt"

	"ridehail/internal/repository"
)

// ErrorKind classifies a domain rejection. Callers branch on the kind, not
// on the message: Conflict is the only retryable kind.
type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInvalidTransition  ErrorKind = "INVALID_TRANSITION"
	KindConflict           ErrorKind = "CONFLICT"
	KindInsufficientFunds  ErrorKind = "INSUFFICIENT_FUNDS"
	KindDuplicateOperation ErrorKind = "DUPLICATE_OPERATION"
	KindNoDriverAvailable  ErrorKind = "NO_DRIVER_AVAILABLE"
	KindFraudHold          ErrorKind = "FRAUD_HOLD"
)

// Error is a domain rejection carrying its kind and a specific reason.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// works regardless of the reason string.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is checks and HTTP mapping.
var (
	ErrValidation         = &Error{Kind: KindValidation, Reason: "invalid input"}
	ErrNotFound           = &Error{Kind: KindNotFound, Reason: "not found"}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition, Reason: "invalid transition"}
	ErrConflict           = &Error{Kind: KindConflict, Reason: "conflict"}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds, Reason: "insufficient funds"}
	ErrDuplicateOperation = &Error{Kind: KindDuplicateOperation, Reason: "operation already applied"}
	ErrNoDriverAvailable  = &Error{Kind: KindNoDriverAvailable, Reason: "no driver available"}
	ErrFraudHold          = &Error{Kind: KindFraudHold, Reason: "payout held pending review"}
)

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Retryable reports whether the caller may safely retry the operation as-is.
func Retryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConflict
}

// fromRepository lifts storage-level failures into domain errors.
func fromRepository(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return errorf(KindNotFound, "entity not found")
	case errors.Is(err, repository.ErrDuplicate):
		return errorf(KindDuplicateOperation, "operation already applied")
	case errors.Is(err, repository.ErrSerialization):
		return errorf(KindConflict, "lost a concurrent update race, retry")
	default:
		return err
	}
}
