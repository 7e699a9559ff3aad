package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openshelf/bibliograph-backend/internal/platform/apierr"
)

// MapStorageError classifies a storage failure into the API taxonomy:
// transient faults surface as 503 so callers can retry, everything else as
// 500. Not-found is not mapped here; repos return (nil, nil) for missing
// rows and services decide what that means.
func MapStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}

	wrap := func(status *apierr.Error) error {
		return fmt.Errorf("%s: %w", op, status)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrap(apierr.Unavailable("storage_timeout", err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return wrap(apierr.Internal("storage_conflict", err)) // unique_violation
		case "23503":
			return wrap(apierr.Internal("storage_precondition", err)) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return wrap(apierr.Unavailable("storage_retryable", err)) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return wrap(apierr.Unavailable("storage_unavailable", err))
	default:
		return wrap(apierr.Internal("storage_error", err))
	}
}
