package cast

import "context"

type CastRepository interface {
	GetByID(ctx context.Context, id string, storeID string) (Cast, error)
	ListByStore(ctx context.Context, storeID string, activeOnly bool) ([]Cast, error)
}
