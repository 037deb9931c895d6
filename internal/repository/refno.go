package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// nextReferenceNo generates a human-readable PREFIX-YYYYMM-NNNN number,
// monotonic per society per month. A transaction-scoped advisory lock
// keyed on table+society serializes the scan-and-insert: without it two
// first-inserts for the same month would both read MAX 0 and mint the
// same suffix.
func nextReferenceNo(ctx context.Context, q sqlx.ExtContext, table, prefix, societyID string, now time.Time) (string, error) {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, table+"/"+societyID); err != nil {
		return "", fmt.Errorf("acquire reference lock for %s: %w", table, err)
	}

	month := now.Format("200601")
	pattern := fmt.Sprintf("%s-%s-%%", prefix, month)

	query := fmt.Sprintf(
		`SELECT COALESCE(MAX(CAST(RIGHT(reference_no, 4) AS INTEGER)), 0) FROM %s WHERE society_id = $1 AND reference_no LIKE $2`,
		table,
	)
	var max int
	if err := sqlx.GetContext(ctx, q, &max, query, societyID, pattern); err != nil {
		return "", fmt.Errorf("scan reference suffix for %s: %w", table, err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, month, max+1), nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Services use it to map the constraint-level backstops
// (duplicate vote, duplicate submission) onto domain errors.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505"
}
