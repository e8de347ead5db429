package payslip

import "context"

type PayslipRepository interface {
	Upsert(ctx context.Context, p Payslip) error
	Get(ctx context.Context, castID, storeID string, year, month int) (Payslip, error)
	ListByPeriod(ctx context.Context, storeID string, year, month int) ([]Payslip, error)
}
