package deduction

import (
	"math"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDailyPayment  Kind = "daily_payment"
	KindLatePenalty   Kind = "late_penalty"
	KindStatusPenalty Kind = "status_penalty"
	KindFixed         Kind = "fixed"
	KindPerAttendance Kind = "per_attendance"
	KindPercentage    Kind = "percentage"
)

type DeductionType struct {
	ID                 string          `json:"id"`
	StoreID            string          `json:"store_id"`
	Name               string          `json:"name"`
	Kind               Kind            `json:"kind"`
	Amount             int64           `json:"amount"`
	Percentage         decimal.Decimal `json:"percentage"`
	AttendanceStatusID *string         `json:"attendance_status_id"`
	LatePenaltyRuleID  *string         `json:"late_penalty_rule_id"`
	IsActive           bool            `json:"is_active"`
	DisplayOrder       int             `json:"display_order"`
}

type LatePenaltyKind string

const (
	LatePenaltyFixed      LatePenaltyKind = "fixed"
	LatePenaltyCumulative LatePenaltyKind = "cumulative"
)

type LatePenaltyRule struct {
	ID                string          `json:"id"`
	StoreID           string          `json:"store_id"`
	Kind              LatePenaltyKind `json:"kind"`
	FixedAmount       int64           `json:"fixed_amount"`
	IntervalMinutes   int             `json:"interval_minutes"`
	AmountPerInterval int64           `json:"amount_per_interval"`
	MaxAmount         *int64          `json:"max_amount"`
}

// Penalty returns the charge for one late arrival of lateMinutes.
// Cumulative rules charge per started interval, capped at MaxAmount.
func (r LatePenaltyRule) Penalty(lateMinutes int) int64 {
	if lateMinutes <= 0 {
		return 0
	}
	switch r.Kind {
	case LatePenaltyFixed:
		return r.FixedAmount
	case LatePenaltyCumulative:
		if r.IntervalMinutes <= 0 {
			return 0
		}
		intervals := int64(math.Ceil(float64(lateMinutes) / float64(r.IntervalMinutes)))
		amount := intervals * r.AmountPerInterval
		if r.MaxAmount != nil && amount > *r.MaxAmount {
			amount = *r.MaxAmount
		}
		return amount
	}
	return 0
}
