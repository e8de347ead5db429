package payslip

import "context"

type PayslipService interface {
	Calculate(ctx context.Context, storeID, castID string, year, month int) (Payslip, error)
	CalculateStore(ctx context.Context, req PeriodRequest) (GenerateResponse, error)
	// Generate calculates every cast of the store and persists the snapshots.
	Generate(ctx context.Context, req PeriodRequest) (GenerateResponse, error)
	List(ctx context.Context, req PeriodRequest) ([]Payslip, error)
}
