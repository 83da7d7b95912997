// Package store is the relational half of a user account: the users table in
// PostgreSQL, accessed through GORM. It also owns the classification of
// database errors, which the signup workflow uses to decide between retrying,
// compensating, and which message to show.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors. Callers match them with errors.Is; the wrapped *Error keeps
// the driver error for logging.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")
	ErrTransient     = errors.New("transient database error")
)

// ErrorClass is the coarse category of a database error.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassTransient
	ClassUniqueViolation
	ClassNotNullViolation
	ClassCheckViolation
	ClassInvalidValue
	ClassNotFound
	ClassPermanent
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassUniqueViolation:
		return "unique_violation"
	case ClassNotNullViolation:
		return "not_null_violation"
	case ClassCheckViolation:
		return "check_violation"
	case ClassInvalidValue:
		return "invalid_value"
	case ClassNotFound:
		return "not_found"
	default:
		return "permanent"
	}
}

// Retryable reports whether an operation that failed with this class may
// succeed if simply tried again.
func (c ErrorClass) Retryable() bool {
	return c == ClassTransient
}

// PostgreSQL SQLSTATE codes.
const (
	codeUniqueViolation  = "23505"
	codeNotNullViolation = "23502"
	codeCheckViolation   = "23514"
	codeInvalidText      = "22P02"

	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
	codeCannotConnectNow     = "57P03"
	codeInsufficientResource = "53000"
	codeDiskFull             = "53100"
	codeOutOfMemory          = "53200"
	codeTooManyConnections   = "53300"
)

var transientCodes = map[string]bool{
	codeSerializationFailure: true,
	codeDeadlockDetected:     true,
	codeQueryCanceled:        true,
	codeAdminShutdown:        true,
	codeCrashShutdown:        true,
	codeCannotConnectNow:     true,
	codeInsufficientResource: true,
	codeDiskFull:             true,
	codeOutOfMemory:          true,
	codeTooManyConnections:   true,
}

// Classify maps any error returned by the database layer to an ErrorClass.
// It is a pure function of the error value and does not touch the database.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	var se *Error
	if errors.As(err, &se) {
		return se.Class
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return ClassNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return ClassUniqueViolation
		case pgErr.Code == codeNotNullViolation:
			return ClassNotNullViolation
		case pgErr.Code == codeCheckViolation:
			return ClassCheckViolation
		case pgErr.Code == codeInvalidText:
			return ClassInvalidValue
		case transientCodes[pgErr.Code]:
			return ClassTransient
		// Class 08: connection exceptions.
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return ClassTransient
		}
		return ClassPermanent
	}

	if isConnectionError(err) {
		return ClassTransient
	}
	return ClassPermanent
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Error is a classified database error. Constraint and Column carry the
// Postgres diagnostics so callers can build field-specific messages without
// parsing driver text.
type Error struct {
	Op         string
	Class      ErrorClass
	Constraint string
	Column     string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, store.ErrDuplicate) and friends work on a classified error.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Class == ClassNotFound
	case ErrDuplicate:
		return e.Class == ClassUniqueViolation
	case ErrInvalidEntity:
		return e.Class == ClassNotNullViolation || e.Class == ClassCheckViolation || e.Class == ClassInvalidValue
	case ErrTransient:
		return e.Class == ClassTransient
	}
	return false
}

// wrap classifies err and attaches the operation name. nil stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	se := &Error{Op: op, Class: Classify(err), Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		se.Constraint = pgErr.ConstraintName
		se.Column = pgErr.ColumnName
	}
	return se
}

// ConstraintOf returns the constraint and column named by a classified error,
// or empty strings when the error carries no diagnostics.
func ConstraintOf(err error) (constraint, column string) {
	var se *Error
	if errors.As(err, &se) {
		return se.Constraint, se.Column
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName, pgErr.ColumnName
	}
	return "", ""
}
