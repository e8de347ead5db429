// Package money holds the yen rounding rules shared by the sales, wage and
// payslip calculations. Amounts are whole yen stored as int64.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to whole yen.
func Round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// ApplyRate returns round(amount * percent / 100).
func ApplyRate(amount int64, percent decimal.Decimal) int64 {
	return Round(decimal.NewFromInt(amount).Mul(percent).Div(hundred))
}

// Multiplier converts a percentage into 1 + percent/100.
func Multiplier(percent decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(percent.Div(hundred))
}

// Percent is a convenience for literal rates.
func Percent(p int64) decimal.Decimal {
	return decimal.NewFromInt(p)
}
