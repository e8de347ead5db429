package product

import "context"

type ProductRepository interface {
	ListByStore(ctx context.Context, storeID string) ([]Product, error)
	// ListMappings returns external product name -> product id.
	ListMappings(ctx context.Context, storeID string) (map[string]string, error)
}
