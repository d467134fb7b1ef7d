package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/care-booking/internal/repository"
)

const (
	uniqueViolation        = "23505"
	connectionExceptionCls = "08"
	// admin_shutdown, crash_shutdown, cannot_connect_now
	shutdownClass = "57P"
)

// classify wraps err with the repository sentinel that describes it, keeping
// the driver error in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", op, repository.ErrDuplicate, err)
	case isUnavailable(err):
		return fmt.Errorf("%s: %w: %w", op, repository.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return strings.HasPrefix(code, connectionExceptionCls) || strings.HasPrefix(code, shutdownClass)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func expectOne(op string, result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

// expectOneOrStale tells a missing row apart from one whose guard no longer
// matched by re-checking existence with existsQuery.
func expectOneOrStale(ctx context.Context, q sqlx.QueryerContext, op string, result sql.Result, existsQuery string, id interface{}) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, existsQuery, id); err != nil {
		return classify(op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, repository.ErrStale)
}
