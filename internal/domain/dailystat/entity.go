package dailystat

import (
	"time"

	"github.com/shopspring/decimal"
)

type Attribution string

const (
	AttributionSelf Attribution = "self"
	AttributionHelp Attribution = "help"
)

// Stat is the per cast, store and business day aggregate. It is the single
// source of financial truth for that key.
type Stat struct {
	CastID  string `json:"cast_id"`
	StoreID string `json:"store_id"`
	Date    string `json:"date"`

	ItemSelfSales     int64 `json:"item_self_sales"`
	ItemHelpSales     int64 `json:"item_help_sales"`
	ItemTotalSales    int64 `json:"item_total_sales"`
	ReceiptSelfSales  int64 `json:"receipt_self_sales"`
	ReceiptHelpSales  int64 `json:"receipt_help_sales"`
	ReceiptTotalSales int64 `json:"receipt_total_sales"`
	SelfProductBack   int64 `json:"self_product_back"`
	HelpProductBack   int64 `json:"help_product_back"`
	NominationCount   int   `json:"nomination_count"`

	WorkHours       decimal.Decimal `json:"work_hours"`
	BaseHourlyWage  int64           `json:"base_hourly_wage"`
	SpecialDayBonus int64           `json:"special_day_bonus"`
	CostumeBonus    int64           `json:"costume_bonus"`
	TotalHourlyWage int64           `json:"total_hourly_wage"`
	WageAmount      int64           `json:"wage_amount"`
	WageStatusID    *string         `json:"wage_status_id"`

	IsFinalized bool       `json:"is_finalized"`
	FinalizedAt *time.Time `json:"finalized_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Item is one (cast, product, self/help) line of a day's breakdown.
type Item struct {
	CastID      string      `json:"cast_id"`
	StoreID     string      `json:"store_id"`
	Date        string      `json:"date"`
	ProductName string      `json:"product_name"`
	Attribution Attribution `json:"attribution"`
	Category    string      `json:"category"`
	Quantity    int         `json:"quantity"`
	Subtotal    int64       `json:"subtotal"`
	BackAmount  int64       `json:"back_amount"`
}

// RecalculateResult summarizes one (store, date) recomputation.
type RecalculateResult struct {
	StoreID          string   `json:"store_id"`
	Date             string   `json:"date"`
	CastsProcessed   int      `json:"casts_processed"`
	ItemsProcessed   int      `json:"items_processed"`
	FinalizedCastIDs []string `json:"finalized_cast_ids,omitempty"`
}
