package payslip

import (
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/deduction"
)

// FormulaResult is the gross pay one compensation type would produce.
type FormulaResult struct {
	CompensationTypeID string `json:"compensation_type_id"`
	Name               string `json:"name"`
	SalesBack          int64  `json:"sales_back"`
	HourlyIncome       int64  `json:"hourly_income"`
	FixedAmount        int64  `json:"fixed_amount"`
	ProductBack        int64  `json:"product_back"`
	GrossTotal         int64  `json:"gross_total"`
}

type DeductionLine struct {
	DeductionTypeID string         `json:"deduction_type_id"`
	Name            string         `json:"name"`
	Kind            deduction.Kind `json:"kind"`
	Amount          int64          `json:"amount"`
}

// Summary holds the period totals formulas are evaluated against.
type Summary struct {
	ItemSelfSales     int64 `json:"item_self_sales"`
	ItemTotalSales    int64 `json:"item_total_sales"`
	ReceiptSelfSales  int64 `json:"receipt_self_sales"`
	ReceiptTotalSales int64 `json:"receipt_total_sales"`
	SelfProductBack   int64 `json:"self_product_back"`
	HelpProductBack   int64 `json:"help_product_back"`
	NominationCount   int   `json:"nomination_count"`
	WageAmount        int64 `json:"wage_amount"`
	WorkDays          int   `json:"work_days"`
}

type Payslip struct {
	CastID                     string          `json:"cast_id"`
	StoreID                    string          `json:"store_id"`
	Year                       int             `json:"year"`
	Month                      int             `json:"month"`
	Summary                    Summary         `json:"summary"`
	Formulas                   []FormulaResult `json:"formulas"`
	SelectedCompensationTypeID string          `json:"selected_compensation_type_id"`
	GrossTotal                 int64           `json:"gross_total"`
	Deductions                 []DeductionLine `json:"deductions"`
	DailyPaymentTotal          int64           `json:"daily_payment_total"`
	Withholding                int64           `json:"withholding"`
	TotalDeductions            int64           `json:"total_deductions"`
	NetPay                     int64           `json:"net_pay"`
	GeneratedAt                time.Time       `json:"generated_at"`
}
