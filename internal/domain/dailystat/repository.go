package dailystat

import (
	"context"
	"time"
)

type DailyStatRepository interface {
	ListByDate(ctx context.Context, storeID, date string) ([]Stat, error)
	ListByCastRange(ctx context.Context, storeID, castID, from, to string) ([]Stat, error)

	// Upsert writes stats keyed by (cast, store, date). Finalized rows and
	// rows whose values are unchanged are left untouched. Returns rows written.
	Upsert(ctx context.Context, stats []Stat) (int64, error)

	ListItems(ctx context.Context, storeID, date string) ([]Item, error)
	// ReplaceItems deletes the items of castIDs on (store, date) and inserts items.
	ReplaceItems(ctx context.Context, storeID, date string, castIDs []string, items []Item) error

	// SetFinalized flips is_finalized for castIDs and returns rows changed.
	SetFinalized(ctx context.Context, storeID, date string, castIDs []string, finalized bool, at time.Time) (int64, error)
}
