// Package domainerrors defines the coded error type shared by every context.
//
// Services attach a stable machine-readable code to each failure so handlers
// can map errors to HTTP statuses and callers can branch on the code without
// string matching. Codes are part of the API contract; messages are not.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// Ledger and registry failures.
	CodeUnauthorized          Code = "unauthorized"
	CodeZeroAddress           Code = "zero_address"
	CodeLastAdmin             Code = "last_admin"
	CodeSupplyCapExceeded     Code = "supply_cap_exceeded"
	CodeInsufficientBalance   Code = "insufficient_balance"
	CodeInsufficientAllowance Code = "insufficient_allowance"
	CodeTransferRestricted    Code = "transfer_restricted"
	CodeIndexOutOfRange       Code = "index_out_of_range"
	CodeAlreadyClaimed        Code = "already_claimed"
	CodeNothingToClaim        Code = "nothing_to_claim"
	CodeUnsafeAllowance       Code = "unsafe_allowance"

	// Transport-level failures.
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeInternal   Code = "internal"
)

// Error is a domain error carrying a stable code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the domain code from err, or CodeInternal when err carries
// none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a domain code to an HTTP status for the transport layer.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeBadRequest, CodeZeroAddress, CodeIndexOutOfRange, CodeUnsafeAllowance:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeLastAdmin, CodeSupplyCapExceeded, CodeInsufficientBalance,
		CodeInsufficientAllowance, CodeTransferRestricted,
		CodeAlreadyClaimed, CodeNothingToClaim:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
