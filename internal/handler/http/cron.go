package http

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/cron"
	"github.com/go-chi/chi/v5"
)

// JobRunner runs a named scheduled job under the shared job lock.
type JobRunner interface {
	Run(ctx context.Context, name string) (cron.RunResult, error)
}

type CronHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
}

type cronHandlerImpl struct {
	jobs JobRunner
}

func NewCronHandler(jobs JobRunner) CronHandler {
	return &cronHandlerImpl{jobs: jobs}
}

func (h *cronHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")

	result, err := h.jobs.Run(r.Context(), job)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Skipped {
		response.SuccessWithMessage(w, "Job already running", result)
		return
	}
	response.Success(w, result)
}
