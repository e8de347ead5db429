package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/payslip"
	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayslipHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	// Get calculates one cast's payslip for the period without persisting it.
	Get(w http.ResponseWriter, r *http.Request)
	Generate(w http.ResponseWriter, r *http.Request)
}

type payslipHandlerImpl struct {
	payslipService payslip.PayslipService
}

func NewPayslipHandler(payslipService payslip.PayslipService) PayslipHandler {
	return &payslipHandlerImpl{payslipService: payslipService}
}

func periodFromQuery(r *http.Request) (payslip.PeriodRequest, error) {
	q := r.URL.Query()
	req := payslip.PeriodRequest{StoreID: q.Get("store_id")}

	var errs validator.ValidationErrors
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be a number"})
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be a number"})
	}
	if len(errs) > 0 {
		return req, errs
	}

	req.Year = year
	req.Month = month
	return req, req.Validate()
}

func (h *payslipHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	req, err := periodFromQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payslipService.List(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payslipHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	castID := chi.URLParam(r, "castID")
	req, err := periodFromQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payslipService.Calculate(r.Context(), req.StoreID, castID, req.Year, req.Month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payslipHandlerImpl) Generate(w http.ResponseWriter, r *http.Request) {
	var req payslip.PeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payslipService.Generate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payslips generated", result)
}
