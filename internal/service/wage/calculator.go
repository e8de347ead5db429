package wage

import (
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/attendance"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// Input is everything needed to price one attendance row.
type Input struct {
	Attendance         attendance.Attendance
	HourlyWageOverride *int64
	Tier               *wagestatus.Status
	SpecialDayBonus    int64
	// CostumeBonuses maps costume id to its hourly bonus.
	CostumeBonuses map[string]int64
}

type Result struct {
	WorkHours       decimal.Decimal
	BaseHourlyWage  int64
	SpecialDayBonus int64
	CostumeBonus    int64
	TotalHourlyWage int64
	WageAmount      int64
	WageStatusID    *string
}

// WorkHours is the shift length in hours rounded to 2 decimals. A clock-out
// at or before clock-in is treated as the next day.
func WorkHours(clockIn, clockOut *time.Time) decimal.Decimal {
	if clockIn == nil || clockOut == nil {
		return decimal.Zero
	}
	d := clockOut.Sub(*clockIn)
	if d <= 0 {
		d += 24 * time.Hour
	}
	if d < 0 {
		d = 0
	}
	hours := decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(3600))
	return hours.Round(2)
}

func Calculate(in Input) Result {
	res := Result{
		WorkHours:       WorkHours(in.Attendance.ClockIn, in.Attendance.ClockOut),
		SpecialDayBonus: in.SpecialDayBonus,
	}

	if in.Tier != nil {
		id := in.Tier.ID
		res.WageStatusID = &id
		res.BaseHourlyWage = in.Tier.HourlyWage
	}
	if in.HourlyWageOverride != nil {
		res.BaseHourlyWage = *in.HourlyWageOverride
	}
	if in.Attendance.CostumeID != nil {
		res.CostumeBonus = in.CostumeBonuses[*in.Attendance.CostumeID]
	}

	res.TotalHourlyWage = res.BaseHourlyWage + res.SpecialDayBonus + res.CostumeBonus
	res.WageAmount = money.Round(decimal.NewFromInt(res.TotalHourlyWage).Mul(res.WorkHours))
	return res
}
