package recalculation

import (
	"encoding/json"

	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
)

// MaxManualRangeDays caps a manual date-range recompute.
const MaxManualRangeDays = 62

const (
	TableOrders      = "orders"
	TableOrderItems  = "order_items"
	TableAttendances = "attendances"
)

// EventPayload is the row-change callback fired on ticket and attendance writes.
type EventPayload struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

func (p *EventPayload) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsInSlice(p.Type, []string{"INSERT", "UPDATE", "DELETE"}) {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be INSERT, UPDATE or DELETE"})
	}
	if validator.IsEmpty(p.Table) {
		errs = append(errs, validator.ValidationError{Field: "table", Message: "is required"})
	}
	if isNullJSON(p.Record) && isNullJSON(p.OldRecord) {
		errs = append(errs, validator.ValidationError{Field: "record", Message: "record or old_record is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func isNullJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// EventRecord holds the row fields used to locate the affected business day.
type EventRecord struct {
	StoreID    string  `json:"store_id"`
	CheckoutAt *string `json:"checkout_at"`
	Date       *string `json:"date"`
	OrderID    *string `json:"order_id"`
}

// DecodeRecord returns nil for an absent or null record.
func DecodeRecord(raw json.RawMessage) (*EventRecord, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	var rec EventRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type ManualRequest struct {
	StoreID  string `json:"store_id"`
	Date     string `json:"date"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

func (r *ManualRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.StoreID) {
		errs = append(errs, validator.ValidationError{Field: "store_id", Message: "is required"})
	}

	switch {
	case r.Date != "":
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs = append(errs, validator.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
		}
	case r.DateFrom != "" || r.DateTo != "":
		from, okFrom := validator.IsValidDate(r.DateFrom)
		to, okTo := validator.IsValidDate(r.DateTo)
		if !okFrom {
			errs = append(errs, validator.ValidationError{Field: "date_from", Message: "must be YYYY-MM-DD"})
		}
		if !okTo {
			errs = append(errs, validator.ValidationError{Field: "date_to", Message: "must be YYYY-MM-DD"})
		}
		if okFrom && okTo {
			if to.Before(from) {
				errs = append(errs, validator.ValidationError{Field: "date_to", Message: "must not be before date_from"})
			} else if int(to.Sub(from).Hours()/24)+1 > MaxManualRangeDays {
				errs = append(errs, validator.ValidationError{Field: "date_to", Message: "range must not exceed " + validator.Itoa(MaxManualRangeDays) + " days"})
			}
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date or date_from/date_to is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Dates expands a validated request into the business dates to recompute.
func (r *ManualRequest) Dates() ([]string, error) {
	if r.Date != "" {
		return []string{r.Date}, nil
	}
	return businessday.DatesBetween(r.DateFrom, r.DateTo)
}

type DateResult struct {
	StoreID        string `json:"store_id"`
	Date           string `json:"date"`
	Success        bool   `json:"success"`
	CastsProcessed int    `json:"casts_processed"`
	ItemsProcessed int    `json:"items_processed"`
	Error          string `json:"error,omitempty"`
}

type EventResult struct {
	Skipped bool         `json:"skipped"`
	Reason  string       `json:"reason,omitempty"`
	Results []DateResult `json:"results"`
}

type ManualResult struct {
	StoreID   string       `json:"store_id"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []DateResult `json:"results"`
}

type StoreRunResult struct {
	StoreID           string       `json:"store_id"`
	Dates             []DateResult `json:"dates"`
	ExternalProcessed int64        `json:"external_processed"`
	Error             string       `json:"error,omitempty"`
}

type ScheduledResult struct {
	Skipped bool             `json:"skipped"`
	Stores  []StoreRunResult `json:"stores"`
}
