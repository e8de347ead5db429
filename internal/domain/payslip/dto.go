package payslip

import "github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"

type PeriodRequest struct {
	StoreID string `json:"store_id"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
}

func (r *PeriodRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.StoreID) {
		errs = append(errs, validator.ValidationError{Field: "store_id", Message: "is required"})
	}
	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2020 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be 2020 or later"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CastError struct {
	CastID string `json:"cast_id"`
	Error  string `json:"error"`
}

type GenerateResponse struct {
	StoreID   string      `json:"store_id"`
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	Generated int         `json:"generated"`
	Payslips  []Payslip   `json:"payslips"`
	Errors    []CastError `json:"errors,omitempty"`
}
