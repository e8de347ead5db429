package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/auth"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/payslip"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/cron"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/marketplace"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var apiErr *marketplace.APIError
	if errors.As(err, &apiErr) {
		BadGateway(w, apiErr.Error())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrMissingCredential), errors.Is(err, auth.ErrInvalidSecret):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Not found
	case errors.Is(err, store.ErrStoreNotFound):
		NotFound(w, "Store not found")
	case errors.Is(err, cast.ErrCastNotFound):
		NotFound(w, "Cast not found")
	case errors.Is(err, order.ErrOrderNotFound):
		NotFound(w, "Order not found")
	case errors.Is(err, compensation.ErrSettingNotFound):
		NotFound(w, "Compensation setting not found")
	case errors.Is(err, payslip.ErrPayslipNotFound):
		NotFound(w, "Payslip not found")
	case errors.Is(err, dailystat.ErrStatNotFound):
		NotFound(w, "Daily stat not found")
	case errors.Is(err, wagestatus.ErrStatusNotFound):
		NotFound(w, "Wage status not found")
	case errors.Is(err, wagestatus.ErrProgressNotFound):
		NotFound(w, "Cast status progress not found")
	case errors.Is(err, externalorder.ErrCredentialNotFound):
		NotFound(w, "Marketplace credential not found")
	case errors.Is(err, cron.ErrUnknownJob):
		NotFound(w, "Unknown cron job")

	// Business rule errors
	case errors.Is(err, store.ErrStoreInactive):
		BadRequest(w, "Store is inactive", nil)
	case errors.Is(err, payslip.ErrInvalidPeriod):
		BadRequest(w, "Invalid payroll period", nil)
	case errors.Is(err, compensation.ErrNoEnabledFormula):
		BadRequest(w, "Compensation setting has no enabled formula", nil)
	case errors.Is(err, wagestatus.ErrNoStatuses):
		BadRequest(w, "Store has no wage statuses", nil)
	case errors.Is(err, wagestatus.ErrProgressLocked):
		Conflict(w, "Cast status progress is locked")
	case errors.Is(err, dailystat.ErrStatFinalized):
		Conflict(w, "Daily stat is finalized")
	case errors.Is(err, externalorder.ErrTokenRefreshFailed):
		BadGateway(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
