package wagestatus

import "context"

type WageStatusRepository interface {
	// ListStatuses returns the store's tiers with conditions, ordered by ascending priority.
	ListStatuses(ctx context.Context, storeID string) ([]Status, error)

	GetProgress(ctx context.Context, castID, storeID string) (Progress, error)
	UpsertProgress(ctx context.Context, p Progress) error
	UpdateCounts(ctx context.Context, castID, storeID string, cumulative, monthly int) error
	SetLocked(ctx context.Context, castID, storeID string, locked bool) error

	InsertHistory(ctx context.Context, h History) error
	ListHistory(ctx context.Context, castID, storeID string) ([]History, error)
}
