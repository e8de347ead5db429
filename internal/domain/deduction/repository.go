package deduction

import "context"

type DeductionRepository interface {
	// ListActive returns active deduction types ordered by display order.
	ListActive(ctx context.Context, storeID string) ([]DeductionType, error)
	ListLatePenaltyRules(ctx context.Context, storeID string) ([]LatePenaltyRule, error)
}
