package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
)

type DailyStatHandler interface {
	Finalize(w http.ResponseWriter, r *http.Request)
	Unfinalize(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type dailyStatHandlerImpl struct {
	dailyStatService dailystat.DailyStatService
}

func NewDailyStatHandler(dailyStatService dailystat.DailyStatService) DailyStatHandler {
	return &dailyStatHandlerImpl{dailyStatService: dailyStatService}
}

func (h *dailyStatHandlerImpl) Finalize(w http.ResponseWriter, r *http.Request) {
	var req dailystat.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.dailyStatService.Finalize(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Daily stats finalized", result)
}

func (h *dailyStatHandlerImpl) Unfinalize(w http.ResponseWriter, r *http.Request) {
	var req dailystat.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.dailyStatService.Unfinalize(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Daily stats unfinalized", result)
}

func (h *dailyStatHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store_id")
	date := r.URL.Query().Get("date")

	var errs validator.ValidationErrors
	if validator.IsEmpty(storeID) {
		errs = append(errs, validator.ValidationError{Field: "store_id", Message: "is required"})
	}
	if _, ok := validator.IsValidDate(date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	if len(errs) > 0 {
		response.HandleError(w, errs)
		return
	}

	result, err := h.dailyStatService.List(r.Context(), storeID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
