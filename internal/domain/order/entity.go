package order

import "time"

// Order is a point-of-sale ticket. StaffNames are the casts of record.
type Order struct {
	ID         string      `json:"id"`
	StoreID    string      `json:"store_id"`
	CheckoutAt time.Time   `json:"checkout_at"`
	StaffNames []string    `json:"staff_names"`
	Items      []OrderItem `json:"items"`
}

type OrderItem struct {
	ID          string   `json:"id"`
	OrderID     string   `json:"order_id"`
	ProductName string   `json:"product_name"`
	Category    string   `json:"category"`
	Quantity    int      `json:"quantity"`
	Subtotal    int64    `json:"subtotal"`
	CastNames   []string `json:"cast_names"`
}

// Subtotal sums the line item subtotals.
func (o Order) Subtotal() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.Subtotal
	}
	return total
}
