package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/joblock"
	"github.com/jackc/pgx/v5"
)

type jobLockStore struct {
	db *database.DB
}

func NewJobLockStore(db *database.DB) joblock.Store {
	return &jobLockStore{db: db}
}

// AcquireLock implements joblock.Store. The conditional upsert only takes
// over a row whose lease has expired, so two holders never both get true.
func (s *jobLockStore) AcquireLock(ctx context.Context, jobName string, ttl time.Duration, holder string) (bool, error) {
	q := GetQuerier(ctx, s.db)

	var got string
	err := q.QueryRow(ctx, `
		INSERT INTO job_locks (job_name, holder, expires_at, acquired_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3), NOW())
		ON CONFLICT (job_name) DO UPDATE SET
			holder = EXCLUDED.holder,
			expires_at = EXCLUDED.expires_at,
			acquired_at = EXCLUDED.acquired_at
		WHERE job_locks.expires_at <= NOW()
		RETURNING holder
	`, jobName, holder, ttl.Seconds()).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire job lock: %w", err)
	}
	return got == holder, nil
}

// ReleaseLock implements joblock.Store.
func (s *jobLockStore) ReleaseLock(ctx context.Context, jobName string, holder string) (bool, error) {
	q := GetQuerier(ctx, s.db)

	tag, err := q.Exec(ctx, `DELETE FROM job_locks WHERE job_name = $1 AND holder = $2`, jobName, holder)
	if err != nil {
		return false, fmt.Errorf("failed to release job lock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
