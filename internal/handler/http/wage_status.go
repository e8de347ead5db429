package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type WageStatusHandler interface {
	Evaluate(w http.ResponseWriter, r *http.Request)
	SetLock(w http.ResponseWriter, r *http.Request)
	Transition(w http.ResponseWriter, r *http.Request)
}

type wageStatusHandlerImpl struct {
	wageStatusService wagestatus.WageStatusService
}

func NewWageStatusHandler(wageStatusService wagestatus.WageStatusService) WageStatusHandler {
	return &wageStatusHandlerImpl{wageStatusService: wageStatusService}
}

type evaluateRequest struct {
	StoreID string `json:"store_id"`
	CastID  string `json:"cast_id"`
}

// Evaluate runs promotion for one cast, one store, or every active store
// depending on which ids are present.
func (h *wageStatusHandlerImpl) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}

	var (
		result interface{}
		err    error
	)
	switch {
	case req.StoreID != "" && req.CastID != "":
		result, err = h.wageStatusService.EvaluateCast(r.Context(), req.StoreID, req.CastID)
	case req.StoreID != "":
		result, err = h.wageStatusService.EvaluateStore(r.Context(), req.StoreID)
	default:
		result, err = h.wageStatusService.EvaluateAll(r.Context())
	}
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *wageStatusHandlerImpl) SetLock(w http.ResponseWriter, r *http.Request) {
	castID := chi.URLParam(r, "castID")
	var req wagestatus.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.wageStatusService.SetLock(r.Context(), castID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *wageStatusHandlerImpl) Transition(w http.ResponseWriter, r *http.Request) {
	castID := chi.URLParam(r, "castID")
	var req wagestatus.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.wageStatusService.ManualTransition(r.Context(), castID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Wage status updated", result)
}
