package response

import (
	"errors"
	"net/http"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Tenant / employee lookups
	case errors.Is(err, tenant.ErrTenantNotFound):
		NotFound(w, "Tenant not found")
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Punch ledger errors
	case errors.Is(err, attendance.ErrAlreadyPunchedIn):
		Conflict(w, "An open session already exists")
	case errors.Is(err, attendance.ErrNotPunchedIn):
		Conflict(w, "No open session to close")
	case errors.Is(err, attendance.ErrNoWindow):
		BadRequest(w, "No shift window could be resolved for this day", nil)
	case errors.Is(err, attendance.ErrEventNotFound):
		NotFound(w, "Attendance event not found")
	case errors.Is(err, attendance.ErrEventNotAnomalous):
		Conflict(w, "Event carries no anomaly flag")

	// Overtime ledger errors
	case errors.Is(err, overtime.ErrEntryNotFound):
		NotFound(w, "Overtime entry not found")
	case errors.Is(err, overtime.ErrApprovalNotAllowed):
		Forbidden(w, "Not allowed to approve overtime")
	case errors.Is(err, overtime.ErrAlreadyProcessed):
		Conflict(w, "Overtime entry already processed")
	case errors.Is(err, overtime.ErrApprovedOverHours):
		BadRequest(w, "Approved hours cannot exceed recorded hours", nil)

	// Recovery ledger errors
	case errors.Is(err, recovery.ErrGrantNotFound):
		NotFound(w, "Recovery day grant not found")
	case errors.Is(err, recovery.ErrGrantAlreadyUsed):
		Conflict(w, "A linked recovery day grant has already been used")
	case errors.Is(err, recovery.ErrNotEnoughAvailableHours):
		BadRequest(w, "Not enough available overtime hours", nil)
	case errors.Is(err, recovery.ErrJustificationRequired):
		BadRequest(w, "A justification of at least 10 characters is required", nil)
	case errors.Is(err, recovery.ErrEntryNotConvertible):
		Conflict(w, "A selected overtime entry is not convertible")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
