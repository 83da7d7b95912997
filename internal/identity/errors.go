// Package identity talks to the external identity provider (Firebase
// Authentication). It mints and deletes accounts, verifies ID tokens, and
// checks email/password credentials. Provider failures are reduced to a small
// set of stable codes; raw provider text never reaches a user.
package identity

import (
	"context"
	"errors"
	"fmt"
)

// Code is a stable, provider-independent identity error code.
type Code string

const (
	CodeEmailInUse      Code = "email-already-in-use"
	CodeInvalidEmail    Code = "invalid-email"
	CodeWeakPassword    Code = "weak-password"
	CodeUserNotFound    Code = "user-not-found"
	CodeWrongPassword   Code = "wrong-password"
	CodeUserDisabled    Code = "user-disabled"
	CodeTooManyRequests Code = "too-many-requests"
	CodeTokenExpired    Code = "id-token-expired"
	CodeTokenInvalid    Code = "invalid-id-token"
	CodeTimeout         Code = "timeout"
	CodeUnknown         Code = "internal-error"
)

// messages is the fixed code → user-facing text table.
var messages = map[Code]string{
	CodeEmailInUse:      "An account with this email already exists.",
	CodeInvalidEmail:    "The email address is not valid.",
	CodeWeakPassword:    "Password is too weak. Use at least 6 characters with upper and lower case letters and a number.",
	CodeUserNotFound:    "No account found with this email.",
	CodeWrongPassword:   "Incorrect email or password.",
	CodeUserDisabled:    "This account has been disabled.",
	CodeTooManyRequests: "Too many attempts. Please try again later.",
	CodeTokenExpired:    "Your session has expired. Please sign in again.",
	CodeTokenInvalid:    "Invalid authentication token.",
	CodeTimeout:         "The account service took too long to respond. Please try again.",
	CodeUnknown:         "Something went wrong. Please try again later.",
}

// Message returns the user-facing text for code. Unknown codes get the
// generic message.
func Message(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return messages[CodeUnknown]
}

// Error is an identity-provider failure reduced to a Code.
type Error struct {
	Op   string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the Code from err. Context deadlines count as CodeTimeout
// even when the provider SDK did not wrap them.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeUnknown
}

// MessageFor is Message(CodeOf(err)).
func MessageFor(err error) string {
	return Message(CodeOf(err))
}

func newError(op string, code Code, err error) error {
	return &Error{Op: op, Code: code, Err: err}
}
