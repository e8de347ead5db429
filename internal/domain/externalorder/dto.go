package externalorder

import "github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"

type ConnectRequest struct {
	StoreID string `json:"store_id"`
	Code    string `json:"code"`
}

func (r *ConnectRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.StoreID) {
		errs = append(errs, validator.ValidationError{Field: "store_id", Message: "is required"})
	}
	if validator.IsEmpty(r.Code) {
		errs = append(errs, validator.ValidationError{Field: "code", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
