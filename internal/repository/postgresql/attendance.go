package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/attendance"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `id, store_id, cast_id, date::text, clock_in, clock_out,
	costume_id, status_id, late_minutes, daily_payment`

func scanAttendances(rows pgx.Rows) ([]attendance.Attendance, error) {
	defer rows.Close()

	var out []attendance.Attendance
	for rows.Next() {
		var a attendance.Attendance
		err := rows.Scan(
			&a.ID, &a.StoreID, &a.CastID, &a.Date, &a.ClockIn, &a.ClockOut,
			&a.CostumeID, &a.StatusID, &a.LateMinutes, &a.DailyPayment,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByDate(ctx context.Context, storeID string, date string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE store_id = $1
		  AND date = $2
		ORDER BY cast_id
	`
	rows, err := q.Query(ctx, query, storeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances: %w", err)
	}
	return scanAttendances(rows)
}

// ListByCastRange implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByCastRange(ctx context.Context, storeID, castID, from, to string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE store_id = $1
		  AND cast_id = $2
		  AND date BETWEEN $3 AND $4
		ORDER BY date
	`
	rows, err := q.Query(ctx, query, storeID, castID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list cast attendances: %w", err)
	}
	return scanAttendances(rows)
}

// CountWithStatus implements attendance.AttendanceRepository.
func (r *attendanceRepository) CountWithStatus(ctx context.Context, storeID, castID, from, to string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var n int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM attendances
		WHERE store_id = $1
		  AND cast_id = $2
		  AND date BETWEEN $3 AND $4
		  AND status_id IS NOT NULL
	`, storeID, castID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendances: %w", err)
	}
	return n, nil
}

// ListStatuses implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListStatuses(ctx context.Context, storeID string) ([]attendance.Status, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id, store_id, name, is_active FROM attendance_statuses WHERE store_id = $1 ORDER BY id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance statuses: %w", err)
	}
	defer rows.Close()

	var out []attendance.Status
	for rows.Next() {
		var s attendance.Status
		if err := rows.Scan(&s.ID, &s.StoreID, &s.Name, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan attendance status: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
