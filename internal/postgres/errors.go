package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqAdminShutdown        = "57P01"
	pqCannotConnectNow     = "57P03"
)

// WrapError translates driver errors into the application's error sentinels.
// Transient failures are marked ErrStoreUnavailable so callers may retry them
// with the same idempotency key.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if ierr.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("Resource not found").
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if ierr.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case code == pqUniqueViolation:
			return ierr.WithError(err).
				WithMessage(msg).
				WithHint("Resource already exists").
				WithReportableDetails(map[string]any{
					"constraint": pqErr.Constraint,
				}).
				Mark(ierr.ErrAlreadyExists)
		case code == pqSerializationFailure, code == pqDeadlockDetected,
			code == pqAdminShutdown, code == pqCannotConnectNow,
			strings.HasPrefix(code, "08"):
			return storeUnavailable(err, msg)
		}
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("Database error").
			Mark(ierr.ErrDatabase)
	}

	var netErr net.Error
	if ierr.Is(err, driver.ErrBadConn) || ierr.Is(err, sql.ErrConnDone) ||
		ierr.Is(err, context.DeadlineExceeded) || ierr.As(err, &netErr) {
		return storeUnavailable(err, msg)
	}

	return ierr.WithError(err).
		WithMessage(msg).
		WithHint("Database error").
		Mark(ierr.ErrDatabase)
}

func storeUnavailable(err error, msg string) error {
	return ierr.WithError(err).
		WithMessage(msg).
		WithHint("Storage is temporarily unavailable, please retry").
		Mark(ierr.ErrStoreUnavailable)
}
