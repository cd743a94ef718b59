// Package apperr defines the closed set of failure kinds the domain services
// report and how they map onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindConflict             Kind = "conflict"
	KindUpstreamUnreachable  Kind = "upstream_unreachable"
	KindQuotaExceeded        Kind = "quota_exceeded"
	KindNoActiveSubscription Kind = "no_active_subscription"
	KindInactive             Kind = "inactive"
	KindPaymentMethodMissing Kind = "payment_method_missing"
	KindInternal             Kind = "internal_server_error"
)

// Error is a classified failure carrying the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func InvalidInput(op, message string) *Error { return New(KindInvalidInput, op, message) }
func NotFound(op, message string) *Error     { return New(KindNotFound, op, message) }
func Forbidden(op, message string) *Error    { return New(KindForbidden, op, message) }
func Conflict(op, message string) *Error     { return New(KindConflict, op, message) }
func QuotaExceeded(op, message string) *Error {
	return New(KindQuotaExceeded, op, message)
}
func NoActiveSubscription(op, message string) *Error {
	return New(KindNoActiveSubscription, op, message)
}
func Inactive(op, message string) *Error { return New(KindInactive, op, message) }
func PaymentMethodMissing(op, message string) *Error {
	return New(KindPaymentMethodMissing, op, message)
}
func UpstreamUnreachable(op, message string, err error) *Error {
	return Wrap(KindUpstreamUnreachable, op, message, err)
}
func Internal(op string, err error) *Error {
	return Wrap(KindInternal, op, "Something went wrong, please retry.", err)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the client facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong, please retry."
}

// OpOf returns the operation that produced err, empty for unclassified errors.
func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// HTTPStatus maps a kind to its response status. Only KindInternal yields a
// server error.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindUpstreamUnreachable, KindQuotaExceeded, KindNoActiveSubscription:
		return http.StatusBadRequest
	case KindPaymentMethodMissing:
		return http.StatusPaymentRequired
	case KindNotFound, KindInactive:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
