package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "boom"}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassNone},
		{"unique", pgErr("23505"), ClassUniqueViolation},
		{"not null", pgErr("23502"), ClassNotNullViolation},
		{"check", pgErr("23514"), ClassCheckViolation},
		{"bad enum text", pgErr("22P02"), ClassInvalidValue},
		{"serialization", pgErr("40001"), ClassTransient},
		{"deadlock", pgErr("40P01"), ClassTransient},
		{"statement timeout", pgErr("57014"), ClassTransient},
		{"admin shutdown", pgErr("57P01"), ClassTransient},
		{"too many connections", pgErr("53300"), ClassTransient},
		{"out of memory", pgErr("53200"), ClassTransient},
		{"connection failure", pgErr("08006"), ClassTransient},
		{"connection does not exist", pgErr("08003"), ClassTransient},
		{"syntax error", pgErr("42601"), ClassPermanent},
		{"wrapped unique", fmt.Errorf("insert: %w", pgErr("23505")), ClassUniqueViolation},
		{"record not found", gorm.ErrRecordNotFound, ClassNotFound},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), ClassTransient},
		{"unexpected eof", io.ErrUnexpectedEOF, ClassTransient},
		{"plain", errors.New("something else"), ClassPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassify_OnlyTransientIsRetryable(t *testing.T) {
	for _, c := range []ErrorClass{ClassNone, ClassUniqueViolation, ClassNotNullViolation, ClassCheckViolation, ClassInvalidValue, ClassNotFound, ClassPermanent} {
		assert.False(t, c.Retryable(), c.String())
	}
	assert.True(t, ClassTransient.Retryable())
}

func TestWrap_SentinelsAndDiagnostics(t *testing.T) {
	raw := &pgconn.PgError{Code: "23514", ConstraintName: "users_skill_level_check"}
	err := wrap("create user", raw)

	assert.ErrorIs(t, err, ErrInvalidEntity)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, ClassCheckViolation, Classify(err))

	constraint, _ := ConstraintOf(err)
	assert.Equal(t, "users_skill_level_check", constraint)

	var got *pgconn.PgError
	assert.True(t, errors.As(err, &got), "driver error stays reachable")
	assert.Contains(t, err.Error(), "create user")
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, wrap("noop", nil))
}
