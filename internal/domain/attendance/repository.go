package attendance

import "context"

type AttendanceRepository interface {
	ListByDate(ctx context.Context, storeID string, date string) ([]Attendance, error)
	// ListByCastRange returns rows with from <= date <= to.
	ListByCastRange(ctx context.Context, storeID, castID, from, to string) ([]Attendance, error)
	// CountWithStatus counts rows with a non-null status in [from, to].
	CountWithStatus(ctx context.Context, storeID, castID, from, to string) (int, error)
	ListStatuses(ctx context.Context, storeID string) ([]Status, error)
}
