package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/polishfinder/backend/repositories"
)

// uniqueViolation is the SQLSTATE raised for unique constraint violations
const uniqueViolation = pq.ErrorCode("23505")

// translateError maps driver errors onto repository sentinels, keeping the
// original error in the chain for logging
func translateError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, repositories.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w (%s)", msg, repositories.ErrUniqueViolation, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
