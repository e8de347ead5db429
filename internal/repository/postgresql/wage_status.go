package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type wageStatusRepository struct {
	db *database.DB
}

func NewWageStatusRepository(db *database.DB) wagestatus.WageStatusRepository {
	return &wageStatusRepository{db: db}
}

// ListStatuses implements wagestatus.WageStatusRepository.
func (r *wageStatusRepository) ListStatuses(ctx context.Context, storeID string) ([]wagestatus.Status, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, store_id, name, priority, hourly_wage, is_default
		FROM wage_statuses
		WHERE store_id = $1
		ORDER BY priority, id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wage statuses: %w", err)
	}
	defer rows.Close()

	var statuses []wagestatus.Status
	index := make(map[string]int)
	for rows.Next() {
		var s wagestatus.Status
		if err := rows.Scan(&s.ID, &s.StoreID, &s.Name, &s.Priority, &s.HourlyWage, &s.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan wage status: %w", err)
		}
		index[s.ID] = len(statuses)
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}

	condRows, err := q.Query(ctx, `
		SELECT c.id, c.status_id, c.direction, c.metric, c.operator, c.threshold
		FROM wage_status_conditions c
		JOIN wage_statuses s ON s.id = c.status_id
		WHERE s.store_id = $1
		ORDER BY c.status_id, c.id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wage status conditions: %w", err)
	}
	defer condRows.Close()

	for condRows.Next() {
		var c wagestatus.Condition
		if err := condRows.Scan(&c.ID, &c.StatusID, &c.Direction, &c.Metric, &c.Operator, &c.Threshold); err != nil {
			return nil, fmt.Errorf("failed to scan wage status condition: %w", err)
		}
		if i, ok := index[c.StatusID]; ok {
			statuses[i].Conditions = append(statuses[i].Conditions, c)
		}
	}
	return statuses, condRows.Err()
}

// GetProgress implements wagestatus.WageStatusRepository.
func (r *wageStatusRepository) GetProgress(ctx context.Context, castID, storeID string) (wagestatus.Progress, error) {
	q := GetQuerier(ctx, r.db)

	var p wagestatus.Progress
	err := q.QueryRow(ctx, `
		SELECT cast_id, store_id, status_id, cumulative_attendance_days, monthly_attendance_days,
		       status_start_date::text, is_locked, updated_at
		FROM cast_status_progress
		WHERE cast_id = $1 AND store_id = $2
	`, castID, storeID).Scan(
		&p.CastID, &p.StoreID, &p.StatusID, &p.CumulativeAttendanceDays, &p.MonthlyAttendanceDays,
		&p.StatusStartDate, &p.IsLocked, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wagestatus.Progress{}, wagestatus.ErrProgressNotFound
		}
		return wagestatus.Progress{}, fmt.Errorf("failed to get status progress: %w", err)
	}
	return p, nil
}

// UpsertProgress implements wagestatus.WageStatusRepository.
func (r *wageStatusRepository) UpsertProgress(ctx context.Context, p wagestatus.Progress) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO cast_status_progress (
			cast_id, store_id, status_id, cumulative_attendance_days, monthly_attendance_days,
			status_start_date, is_locked, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (cast_id, store_id) DO UPDATE SET
			status_id = EXCLUDED.status_id,
			cumulative_attendance_days = EXCLUDED.cumulative_attendance_days,
			monthly_attendance_days = EXCLUDED.monthly_attendance_days,
			status_start_date = EXCLUDED.status_start_date,
			is_locked = EXCLUDED.is_locked,
			updated_at = NOW()
	`, p.CastID, p.StoreID, p.StatusID, p.CumulativeAttendanceDays, p.MonthlyAttendanceDays, p.StatusStartDate, p.IsLocked)
	if err != nil {
		return fmt.Errorf("failed to upsert status progress: %w", err)
	}
	return nil
}

// UpdateCounts implements wagestatus.WageStatusRepository.
func (r *wageStatusRepository) UpdateCounts(ctx context.Context, castID, storeID string, cumulative, monthly int) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		UPDATE cast_status_progress
		SET cumulative_attendance_days = $3, monthly_attendance_days = $4, updated_at = NOW()
		WHERE cast_id = $1 AND store_id = $2
	`, castID, storeID, cumulative, monthly)
	if err != nil {
		return fmt.Errorf("failed to update status counts: %w", err)
	}
	return nil
}

// SetLocked implements wagestatus.WageStatusRepository.
func (r *wageStatusRepository) SetLocked(ctx context.Context, castID, storeID string, locked bool) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE cast_status_progress
		SET is_locked = $3, updated_at = NOW()
		WHERE cast_id = $1 AND store_id = $2
	`, castID, storeID, locked)
	if err != nil {
		return fmt.Errorf("failed to set status lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return wagestatus.ErrProgressNotFound
	}
	return nil
}

// InsertHistory implements wagestatus.WageStatusRepository.
func (r *wageStatusRepository) InsertHistory(ctx context.Context, h wagestatus.History) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO cast_status_history (id, cast_id, store_id, previous_status_id, new_status_id, reason, trigger_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.CastID, h.StoreID, h.PreviousStatusID, h.NewStatusID, h.Reason, h.TriggerType, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

// ListHistory implements wagestatus.WageStatusRepository.
func (r *wageStatusRepository) ListHistory(ctx context.Context, castID, storeID string) ([]wagestatus.History, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, cast_id, store_id, previous_status_id, new_status_id, reason, trigger_type, created_at
		FROM cast_status_history
		WHERE cast_id = $1 AND store_id = $2
		ORDER BY created_at, id
	`, castID, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var out []wagestatus.History
	for rows.Next() {
		var h wagestatus.History
		if err := rows.Scan(&h.ID, &h.CastID, &h.StoreID, &h.PreviousStatusID, &h.NewStatusID, &h.Reason, &h.TriggerType, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
