package product

import "github.com/shopspring/decimal"

type BackType string

const (
	BackTypeRatio BackType = "ratio"
	BackTypeFixed BackType = "fixed"
)

// CategoryNomination marks items that count towards a cast's nomination total.
const CategoryNomination = "nomination"

type Product struct {
	ID         string          `json:"id"`
	StoreID    string          `json:"store_id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	BackType   BackType        `json:"back_type"`
	BackRatio  decimal.Decimal `json:"back_ratio"`
	BackAmount int64           `json:"back_amount"`
}

// Mapping links a marketplace product title to a local product.
type Mapping struct {
	StoreID             string `json:"store_id"`
	ExternalProductName string `json:"external_product_name"`
	ProductID           string `json:"product_id"`
}
