package order

import (
	"context"
	"time"
)

type OrderRepository interface {
	// ListByCheckoutRange returns orders with items whose checkout_at is within [start, end].
	ListByCheckoutRange(ctx context.Context, storeID string, start, end time.Time) ([]Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
}
