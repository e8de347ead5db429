package marketplace

import (
	"fmt"
	"time"
)

// Token is the credential triple persisted per store.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type ListOrdersParams struct {
	StartOrdered time.Time
	EndOrdered   time.Time
	Limit        int
	Offset       int
}

type OrderSummary struct {
	UniqueKey string `json:"unique_key"`
	Ordered   int64  `json:"ordered"`
	Cancelled *int64 `json:"cancelled"`
	Total     int64  `json:"total"`
}

type listOrdersResponse struct {
	Orders []OrderSummary `json:"orders"`
}

type OrderItem struct {
	ItemID    int64  `json:"item_id"`
	Title     string `json:"title"`
	Variation string `json:"variation"`
	Amount    int    `json:"amount"`
	Price     int64  `json:"price"`
	Total     int64  `json:"total"`
	Status    string `json:"status"`
}

type OrderDetail struct {
	UniqueKey  string      `json:"unique_key"`
	Ordered    int64       `json:"ordered"`
	Cancelled  *int64      `json:"cancelled"`
	OrderItems []OrderItem `json:"order_items"`
}

// OrderedAt converts the unix ordered timestamp.
func (d OrderDetail) OrderedAt() time.Time {
	return time.Unix(d.Ordered, 0)
}

type orderDetailResponse struct {
	Order OrderDetail `json:"order"`
}

// APIError represents a non-2xx marketplace response
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API error [%d] %s: %s", e.StatusCode, e.ErrorCode, e.Message)
}

type apiErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
