package wagestatus

import "time"

type Direction string

const (
	DirectionPromotion Direction = "promotion"
	DirectionDemotion  Direction = "demotion"
)

type Metric string

const (
	MetricCumulativeAttendanceDays Metric = "cumulative_attendance_days"
	MetricMonthlyAttendanceDays    Metric = "monthly_attendance_days"
)

type Operator string

const (
	OpGTE Operator = ">="
	OpGT  Operator = ">"
	OpEQ  Operator = "="
	OpLTE Operator = "<="
	OpLT  Operator = "<"
)

type TriggerType string

const (
	TriggerAuto   TriggerType = "auto"
	TriggerManual TriggerType = "manual"
)

// Status is a compensation tier. A larger Priority is a higher tier.
type Status struct {
	ID         string      `json:"id"`
	StoreID    string      `json:"store_id"`
	Name       string      `json:"name"`
	Priority   int         `json:"priority"`
	HourlyWage int64       `json:"hourly_wage"`
	IsDefault  bool        `json:"is_default"`
	Conditions []Condition `json:"conditions"`
}

type Condition struct {
	ID        string    `json:"id"`
	StatusID  string    `json:"status_id"`
	Direction Direction `json:"direction"`
	Metric    Metric    `json:"metric"`
	Operator  Operator  `json:"operator"`
	Threshold int       `json:"threshold"`
}

// Metrics are the attendance counters conditions are evaluated against.
type Metrics struct {
	CumulativeAttendanceDays int `json:"cumulative_attendance_days"`
	MonthlyAttendanceDays    int `json:"monthly_attendance_days"`
}

func (m Metrics) value(metric Metric) (int, bool) {
	switch metric {
	case MetricCumulativeAttendanceDays:
		return m.CumulativeAttendanceDays, true
	case MetricMonthlyAttendanceDays:
		return m.MonthlyAttendanceDays, true
	}
	return 0, false
}

// Evaluate reports whether m satisfies the condition. Unknown metrics or
// operators never match.
func (c Condition) Evaluate(m Metrics) bool {
	v, ok := m.value(c.Metric)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpGTE:
		return v >= c.Threshold
	case OpGT:
		return v > c.Threshold
	case OpEQ:
		return v == c.Threshold
	case OpLTE:
		return v <= c.Threshold
	case OpLT:
		return v < c.Threshold
	}
	return false
}

// ConditionsFor returns the tier's conditions in one direction.
func (s Status) ConditionsFor(dir Direction) []Condition {
	var out []Condition
	for _, c := range s.Conditions {
		if c.Direction == dir {
			out = append(out, c)
		}
	}
	return out
}

// AllSatisfied is AND over conds. An empty set is never satisfied so a tier
// without conditions in a direction never transitions that way.
func AllSatisfied(conds []Condition, m Metrics) bool {
	if len(conds) == 0 {
		return false
	}
	for _, c := range conds {
		if !c.Evaluate(m) {
			return false
		}
	}
	return true
}

type Progress struct {
	CastID                   string    `json:"cast_id"`
	StoreID                  string    `json:"store_id"`
	StatusID                 string    `json:"status_id"`
	CumulativeAttendanceDays int       `json:"cumulative_attendance_days"`
	MonthlyAttendanceDays    int       `json:"monthly_attendance_days"`
	StatusStartDate          string    `json:"status_start_date"`
	IsLocked                 bool      `json:"is_locked"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type History struct {
	ID               string      `json:"id"`
	CastID           string      `json:"cast_id"`
	StoreID          string      `json:"store_id"`
	PreviousStatusID *string     `json:"previous_status_id"`
	NewStatusID      string      `json:"new_status_id"`
	Reason           string      `json:"reason"`
	TriggerType      TriggerType `json:"trigger_type"`
	CreatedAt        time.Time   `json:"created_at"`
}

// DefaultTier is the tier flagged default, else the lowest priority one.
// It returns nil when statuses is empty.
func DefaultTier(statuses []Status) *Status {
	var lowest *Status
	for i := range statuses {
		if statuses[i].IsDefault {
			return &statuses[i]
		}
		if lowest == nil || statuses[i].Priority < lowest.Priority {
			lowest = &statuses[i]
		}
	}
	return lowest
}
