package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/attendance"
)

type AttendanceRepository struct {
	mu       sync.RWMutex
	rows     []attendance.Attendance
	statuses []attendance.Status
}

func NewAttendanceRepository(rows ...attendance.Attendance) *AttendanceRepository {
	return &AttendanceRepository{rows: rows}
}

func (r *AttendanceRepository) Add(rows ...attendance.Attendance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rows...)
}

func (r *AttendanceRepository) AddStatus(s attendance.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *AttendanceRepository) ListByDate(_ context.Context, storeID string, date string) ([]attendance.Attendance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []attendance.Attendance
	for _, a := range r.rows {
		if a.StoreID == storeID && a.Date == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CastID < out[j].CastID })
	return out, nil
}

func (r *AttendanceRepository) ListByCastRange(_ context.Context, storeID, castID, from, to string) ([]attendance.Attendance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []attendance.Attendance
	for _, a := range r.rows {
		if a.StoreID == storeID && a.CastID == castID && inRange(a.Date, from, to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *AttendanceRepository) CountWithStatus(_ context.Context, storeID, castID, from, to string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.rows {
		if a.StoreID == storeID && a.CastID == castID && a.StatusID != nil && inRange(a.Date, from, to) {
			n++
		}
	}
	return n, nil
}

func (r *AttendanceRepository) ListStatuses(_ context.Context, storeID string) ([]attendance.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []attendance.Status
	for _, s := range r.statuses {
		if s.StoreID == storeID {
			out = append(out, s)
		}
	}
	return out, nil
}
