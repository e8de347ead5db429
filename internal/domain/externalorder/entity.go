package externalorder

import "time"

// TokenExpiryLeeway treats a token as expired slightly before its stated expiry.
const TokenExpiryLeeway = time.Minute

type Credential struct {
	StoreID        string    `json:"store_id"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c Credential) IsExpired(now time.Time) bool {
	return !now.Add(TokenExpiryLeeway).Before(c.TokenExpiresAt)
}

// Record is a staged marketplace order line, unique per
// (store, external order, product name, variation name).
type Record struct {
	ID              string    `json:"id"`
	StoreID         string    `json:"store_id"`
	ExternalOrderID string    `json:"external_order_id"`
	ProductName     string    `json:"product_name"`
	VariationName   string    `json:"variation_name"`
	CastID          *string   `json:"cast_id"`
	ProductID       *string   `json:"product_id"`
	Quantity        int       `json:"quantity"`
	UnitPrice       int64     `json:"unit_price"`
	OrderedAt       time.Time `json:"ordered_at"`
	BusinessDate    string    `json:"business_date"`
	IsProcessed     bool      `json:"is_processed"`
}

// PendingDate is a business date waiting for recomputation. Revision is the
// newest change recorded for it.
type PendingDate struct {
	Date     string `json:"date"`
	Revision int64  `json:"revision"`
}

// Subtotal is quantity times unit price.
func (r Record) Subtotal() int64 {
	return int64(r.Quantity) * r.UnitPrice
}

type StoreSyncResult struct {
	StoreID       string   `json:"store_id"`
	Success       bool     `json:"success"`
	ImportedCount int      `json:"imported_count"`
	ErrorCount    int      `json:"error_count"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
	Error         string   `json:"error,omitempty"`
}

type SyncResult struct {
	Results       []StoreSyncResult `json:"results"`
	TotalImported int               `json:"total_imported"`
	TotalErrors   int               `json:"total_errors"`
	FailedStores  int               `json:"failed_stores"`
}
