package dailystat

import "github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"

type FinalizeRequest struct {
	StoreID string   `json:"store_id"`
	Date    string   `json:"date"`
	CastIDs []string `json:"cast_ids"`
}

func (r *FinalizeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.StoreID) {
		errs = append(errs, validator.ValidationError{Field: "store_id", Message: "is required"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type FinalizeResponse struct {
	StoreID  string `json:"store_id"`
	Date     string `json:"date"`
	Affected int64  `json:"affected"`
}

type ListResponse struct {
	Stats []Stat `json:"stats"`
	Items []Item `json:"items"`
}
