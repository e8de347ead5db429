package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/product"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewOrderRepository(orders ...order.Order) *OrderRepository {
	r := &OrderRepository{orders: make(map[string]order.Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

// Put inserts or replaces an order.
func (r *OrderRepository) Put(o order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
}

func (r *OrderRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
}

func (r *OrderRepository) ListByCheckoutRange(_ context.Context, storeID string, start, end time.Time) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.StoreID != storeID || o.CheckoutAt.Before(start) || o.CheckoutAt.After(end) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckoutAt.Equal(out[j].CheckoutAt) {
			return out[i].CheckoutAt.Before(out[j].CheckoutAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}
	return o, nil
}

type ProductRepository struct {
	mu       sync.RWMutex
	products []product.Product
	mappings []product.Mapping
}

func NewProductRepository(products ...product.Product) *ProductRepository {
	return &ProductRepository{products: products}
}

func (r *ProductRepository) AddMapping(m product.Mapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings = append(r.mappings, m)
}

func (r *ProductRepository) ListByStore(_ context.Context, storeID string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []product.Product
	for _, p := range r.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepository) ListMappings(_ context.Context, storeID string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string)
	for _, m := range r.mappings {
		if m.StoreID == storeID {
			out[m.ExternalProductName] = m.ProductID
		}
	}
	return out, nil
}
