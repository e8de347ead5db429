package dailystat

import "context"

type DailyStatService interface {
	Recalculate(ctx context.Context, storeID, date string) (RecalculateResult, error)
	// Finalize locks the listed casts' rows. An empty list locks every row of the day.
	Finalize(ctx context.Context, req FinalizeRequest) (FinalizeResponse, error)
	Unfinalize(ctx context.Context, req FinalizeRequest) (FinalizeResponse, error)
	List(ctx context.Context, storeID, date string) (ListResponse, error)
}
