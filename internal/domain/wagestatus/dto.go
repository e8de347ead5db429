package wagestatus

import "github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"

type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomePromoted  Outcome = "promoted"
	OutcomeDemoted   Outcome = "demoted"
	OutcomeLocked    Outcome = "locked"
	OutcomeFailed    Outcome = "failed"
)

type EvaluationResult struct {
	CastID       string  `json:"cast_id"`
	Outcome      Outcome `json:"outcome"`
	FromStatusID string  `json:"from_status_id,omitempty"`
	ToStatusID   string  `json:"to_status_id,omitempty"`
	Metrics      Metrics `json:"metrics"`
	Error        string  `json:"error,omitempty"`
}

type StoreEvaluation struct {
	StoreID   string             `json:"store_id"`
	Evaluated int                `json:"evaluated"`
	Promoted  int                `json:"promoted"`
	Demoted   int                `json:"demoted"`
	Locked    int                `json:"locked"`
	Failed    int                `json:"failed"`
	Results   []EvaluationResult `json:"results"`
	Error     string             `json:"error,omitempty"`
}

type LockRequest struct {
	StoreID string `json:"store_id"`
	Locked  bool   `json:"locked"`
}

func (r *LockRequest) Validate() error {
	if validator.IsEmpty(r.StoreID) {
		return validator.ValidationErrors{{Field: "store_id", Message: "is required"}}
	}
	return nil
}

type TransitionRequest struct {
	StoreID  string `json:"store_id"`
	StatusID string `json:"status_id"`
	Reason   string `json:"reason"`
}

func (r *TransitionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.StoreID) {
		errs = append(errs, validator.ValidationError{Field: "store_id", Message: "is required"})
	}
	if validator.IsEmpty(r.StatusID) {
		errs = append(errs, validator.ValidationError{Field: "status_id", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
