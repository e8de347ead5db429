package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type AttributionPolicy string

const (
	// AttributionItemBased splits each line item across the casts tagged on it.
	AttributionItemBased AttributionPolicy = "item_based"
	// AttributionReceiptBased splits the whole ticket across its staff plus every tagged cast.
	AttributionReceiptBased AttributionPolicy = "receipt_based"
)

func (p AttributionPolicy) IsValid() bool {
	return p == AttributionItemBased || p == AttributionReceiptBased
}

type Store struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	IsActive          bool              `json:"is_active"`
	CutoffHour        int               `json:"cutoff_hour"`
	TaxRate           decimal.Decimal   `json:"tax_rate"`
	ServiceFeeRate    decimal.Decimal   `json:"service_fee_rate"`
	AttributionPolicy AttributionPolicy `json:"attribution_policy"`
	ExcludeTax        bool              `json:"exclude_tax"`
	IncludeServiceFee bool              `json:"include_service_fee"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Costume adds WageBonus to the hourly wage of a cast wearing it.
type Costume struct {
	ID        string `json:"id"`
	StoreID   string `json:"store_id"`
	Name      string `json:"name"`
	WageBonus int64  `json:"wage_bonus"`
}
