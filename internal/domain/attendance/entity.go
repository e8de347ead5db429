package attendance

import "time"

// Attendance is one clock-in/clock-out row per cast and date. Date is the
// business day (YYYY-MM-DD) the shift belongs to.
type Attendance struct {
	ID           string     `json:"id"`
	StoreID      string     `json:"store_id"`
	CastID       string     `json:"cast_id"`
	Date         string     `json:"date"`
	ClockIn      *time.Time `json:"clock_in"`
	ClockOut     *time.Time `json:"clock_out"`
	CostumeID    *string    `json:"costume_id"`
	StatusID     *string    `json:"status_id"`
	LateMinutes  int        `json:"late_minutes"`
	DailyPayment int64      `json:"daily_payment"`
}

// Status is a store-defined attendance state such as present or excused.
// IsActive statuses count as a workday.
type Status struct {
	ID       string `json:"id"`
	StoreID  string `json:"store_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// ActiveStatusSet returns the ids of statuses that count as a workday.
func ActiveStatusSet(statuses []Status) map[string]bool {
	set := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		if s.IsActive {
			set[s.ID] = true
		}
	}
	return set
}
