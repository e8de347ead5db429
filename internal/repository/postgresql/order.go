package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/product"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type orderRepository struct {
	db *database.DB
}

func NewOrderRepository(db *database.DB) order.OrderRepository {
	return &orderRepository{db: db}
}

// ListByCheckoutRange implements order.OrderRepository.
func (r *orderRepository) ListByCheckoutRange(ctx context.Context, storeID string, start, end time.Time) ([]order.Order, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, store_id, checkout_at, staff_names
		FROM orders
		WHERE store_id = $1
		  AND checkout_at BETWEEN $2 AND $3
		ORDER BY checkout_at, id
	`, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.StoreID, &o.CheckoutAt, &o.StaffNames); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := r.listItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// GetByID implements order.OrderRepository.
func (r *orderRepository) GetByID(ctx context.Context, id string) (order.Order, error) {
	q := GetQuerier(ctx, r.db)

	var o order.Order
	err := q.QueryRow(ctx, `SELECT id, store_id, checkout_at, staff_names FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.StoreID, &o.CheckoutAt, &o.StaffNames)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrOrderNotFound
		}
		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.listItems(ctx, q, []string{id})
	if err != nil {
		return order.Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *orderRepository) listItems(ctx context.Context, q database.Querier, orderIDs []string) (map[string][]order.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_name, category, quantity, subtotal, cast_names
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]order.OrderItem, len(orderIDs))
	for rows.Next() {
		var it order.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductName, &it.Category, &it.Quantity, &it.Subtotal, &it.CastNames); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

type productRepository struct {
	db *database.DB
}

func NewProductRepository(db *database.DB) product.ProductRepository {
	return &productRepository{db: db}
}

// ListByStore implements product.ProductRepository.
func (r *productRepository) ListByStore(ctx context.Context, storeID string) ([]product.Product, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, store_id, name, category, back_type, back_ratio, back_amount
		FROM products
		WHERE store_id = $1
		ORDER BY name
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Name, &p.Category, &p.BackType, &p.BackRatio, &p.BackAmount); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListMappings implements product.ProductRepository.
func (r *productRepository) ListMappings(ctx context.Context, storeID string) (map[string]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT external_product_name, product_id FROM product_mappings WHERE store_id = $1`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product mappings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("failed to scan product mapping: %w", err)
		}
		out[name] = id
	}
	return out, rows.Err()
}
