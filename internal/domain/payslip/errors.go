package payslip

import "errors"

var (
	ErrPayslipNotFound = errors.New("payslip not found")
	ErrInvalidPeriod   = errors.New("invalid payroll period")
)
