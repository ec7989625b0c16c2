package recovery

import (
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/pkg/validator"
)

type ConvertRequest struct {
	EmployeeID    string  `json:"employee_id"`
	StartDate     string  `json:"start_date"` // YYYY-MM-DD
	EndDate       string  `json:"end_date"`
	Days          int     `json:"days"`
	Justification *string `json:"justification,omitempty"`

	// OvertimeEntryIDs restricts the funding to the listed entries. Empty
	// means every convertible entry, oldest first.
	OvertimeEntryIDs []string `json:"overtime_entry_ids,omitempty"`
}

func (r *ConvertRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	start, okStart := validator.IsValidDate(r.StartDate)
	if !okStart {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be YYYY-MM-DD",
		})
	}

	end, okEnd := validator.IsValidDate(r.EndDate)
	if !okEnd {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be YYYY-MM-DD",
		})
	}

	if okStart && okEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if r.Days <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "days",
			Message: "days must be positive",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Period returns the parsed date range. Call only after Validate.
func (r *ConvertRequest) Period() (time.Time, time.Time) {
	start, _ := validator.IsValidDate(r.StartDate)
	end, _ := validator.IsValidDate(r.EndDate)
	return start, end
}

type CancelRequest struct {
	GrantIDs      []string `json:"grant_ids"`
	Justification string   `json:"justification,omitempty"`
}

func (r *CancelRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.GrantIDs) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "grant_ids",
			Message: "at least one grant_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
