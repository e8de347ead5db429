package compensation

import (
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/shopspring/decimal"
)

type PaymentSelection string

const (
	SelectionSpecific PaymentSelection = "specific"
	SelectionAutoMax  PaymentSelection = "auto_max"
)

type SalesTarget string

const (
	SalesTargetSelfOnly SalesTarget = "self_only"
	SalesTargetTotal    SalesTarget = "total"
)

type CommissionMode string

const (
	CommissionFlat    CommissionMode = "flat"
	CommissionSliding CommissionMode = "sliding"
)

// RateTier is a sliding commission bracket. Max 0 means unbounded.
type RateTier struct {
	Min  int64           `json:"min"`
	Max  int64           `json:"max"`
	Rate decimal.Decimal `json:"rate"`
}

func (t RateTier) Contains(v int64) bool {
	return v >= t.Min && (t.Max == 0 || v <= t.Max)
}

// SelectRateTier returns the first tier containing sales.
func SelectRateTier(tiers []RateTier, sales int64) (RateTier, bool) {
	for _, t := range tiers {
		if t.Contains(sales) {
			return t, true
		}
	}
	return RateTier{}, false
}

// SalesBackRule is how a formula turns sales into commission.
type SalesBackRule struct {
	Attribution store.AttributionPolicy `json:"attribution"`
	Target      SalesTarget             `json:"target"`
	Mode        CommissionMode          `json:"mode"`
	Rate        decimal.Decimal         `json:"rate"`
	Tiers       []RateTier              `json:"tiers"`
}

// CompensationType is one pay formula a cast may be paid under.
type CompensationType struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Enabled            bool           `json:"enabled"`
	SalesBack          *SalesBackRule `json:"sales_back,omitempty"`
	UseHourly          bool           `json:"use_hourly"`
	UseSelfProductBack bool           `json:"use_self_product_back"`
	UseHelpProductBack bool           `json:"use_help_product_back"`
	Rewards            []Reward       `json:"-"`
}

type compensationTypeJSON struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Enabled            bool              `json:"enabled"`
	SalesBack          *SalesBackRule    `json:"sales_back,omitempty"`
	UseHourly          bool              `json:"use_hourly"`
	UseSelfProductBack bool              `json:"use_self_product_back"`
	UseHelpProductBack bool              `json:"use_help_product_back"`
	Rewards            []json.RawMessage `json:"rewards"`
}

func (c CompensationType) MarshalJSON() ([]byte, error) {
	aux := compensationTypeJSON{
		ID:                 c.ID,
		Name:               c.Name,
		Enabled:            c.Enabled,
		SalesBack:          c.SalesBack,
		UseHourly:          c.UseHourly,
		UseSelfProductBack: c.UseSelfProductBack,
		UseHelpProductBack: c.UseHelpProductBack,
		Rewards:            make([]json.RawMessage, 0, len(c.Rewards)),
	}
	for _, r := range c.Rewards {
		raw, err := MarshalReward(r)
		if err != nil {
			return nil, err
		}
		aux.Rewards = append(aux.Rewards, raw)
	}
	return json.Marshal(aux)
}

func (c *CompensationType) UnmarshalJSON(data []byte) error {
	var aux compensationTypeJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = CompensationType{
		ID:                 aux.ID,
		Name:               aux.Name,
		Enabled:            aux.Enabled,
		SalesBack:          aux.SalesBack,
		UseHourly:          aux.UseHourly,
		UseSelfProductBack: aux.UseSelfProductBack,
		UseHelpProductBack: aux.UseHelpProductBack,
	}
	for i, raw := range aux.Rewards {
		r, err := UnmarshalReward(raw)
		if err != nil {
			return fmt.Errorf("compensation type %s reward %d: %w", aux.ID, i, err)
		}
		c.Rewards = append(c.Rewards, r)
	}
	return nil
}

// Setting is a cast's compensation configuration, optionally scoped to a
// target year and month.
type Setting struct {
	ID                         string             `json:"id"`
	CastID                     string             `json:"cast_id"`
	StoreID                    string             `json:"store_id"`
	TargetYear                 *int               `json:"target_year"`
	TargetMonth                *int               `json:"target_month"`
	StatusID                   *string            `json:"status_id"`
	HourlyWageOverride         *int64             `json:"hourly_wage_override"`
	CompensationTypes          []CompensationType `json:"compensation_types"`
	EnabledDeductionIDs        []string           `json:"enabled_deduction_ids"`
	PaymentSelection           PaymentSelection   `json:"payment_selection"`
	SelectedCompensationTypeID *string            `json:"selected_compensation_type_id"`
	IsActive                   bool               `json:"is_active"`
}

// EnabledTypes returns the formulas in declared order, skipping disabled ones.
func (s Setting) EnabledTypes() []CompensationType {
	var out []CompensationType
	for _, t := range s.CompensationTypes {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// DeductionEnabled reports whether id is enabled. An empty list enables all.
func (s Setting) DeductionEnabled(id string) bool {
	if len(s.EnabledDeductionIDs) == 0 {
		return true
	}
	for _, d := range s.EnabledDeductionIDs {
		if d == id {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the setting targets year/month. Untargeted
// settings apply to every period.
func (s Setting) AppliesTo(year, month int) bool {
	if s.TargetYear == nil || s.TargetMonth == nil {
		return true
	}
	return *s.TargetYear == year && *s.TargetMonth == month
}

// IsTargeted reports whether the setting is scoped to a specific period.
func (s Setting) IsTargeted() bool {
	return s.TargetYear != nil && s.TargetMonth != nil
}

// PickSetting chooses the setting for a period. A period-targeted setting
// wins over an untargeted one.
func PickSetting(settings []Setting, year, month int) (Setting, bool) {
	var fallback *Setting
	for i := range settings {
		s := settings[i]
		if !s.IsActive || !s.AppliesTo(year, month) {
			continue
		}
		if s.IsTargeted() {
			return s, true
		}
		if fallback == nil {
			fallback = &settings[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Setting{}, false
}
