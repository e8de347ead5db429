package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/recalculation"
	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
)

type RecalculationHandler interface {
	// HandleWebhook receives row-change events for orders, order items and attendances.
	HandleWebhook(w http.ResponseWriter, r *http.Request)
	RunManual(w http.ResponseWriter, r *http.Request)
}

type recalculationHandlerImpl struct {
	recalculationService recalculation.RecalculationService
}

func NewRecalculationHandler(recalculationService recalculation.RecalculationService) RecalculationHandler {
	return &recalculationHandlerImpl{recalculationService: recalculationService}
}

func (h *recalculationHandlerImpl) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload recalculation.EventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.recalculationService.HandleEvent(r.Context(), payload)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Skipped {
		response.SuccessWithMessage(w, "Event skipped", result)
		return
	}
	response.Success(w, result)
}

func (h *recalculationHandlerImpl) RunManual(w http.ResponseWriter, r *http.Request) {
	var req recalculation.ManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.recalculationService.RunManual(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
