package store

import "context"

type StoreRepository interface {
	GetByID(ctx context.Context, id string) (Store, error)
	ListActive(ctx context.Context) ([]Store, error)

	ListCostumes(ctx context.Context, storeID string) ([]Costume, error)
	// GetSpecialDayBonus returns 0 when the date has no bonus configured.
	GetSpecialDayBonus(ctx context.Context, storeID string, date string) (int64, error)
}
