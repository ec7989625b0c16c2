package attendance

import (
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/pkg/validator"
)

var punchMethods = []string{"badge", "mobile", "web"}

type PunchInRequest struct {
	EmployeeID string `json:"employee_id"`
	Timestamp  string `json:"timestamp,omitempty"` // RFC 3339; empty means now
	Method     string `json:"method,omitempty"`
}

func (r *PunchInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Timestamp != "" {
		if _, ok := validator.IsValidTimestamp(r.Timestamp); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "timestamp",
				Message: "timestamp must be RFC 3339",
			})
		}
	}

	if r.Method != "" && !validator.IsInSlice(r.Method, punchMethods) {
		errs = append(errs, validator.ValidationError{
			Field:   "method",
			Message: "method must be one of badge, mobile, web",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// At resolves the effective punch instant.
func (r *PunchInRequest) At(now time.Time) time.Time {
	if r.Timestamp == "" {
		return now
	}
	t, _ := validator.IsValidTimestamp(r.Timestamp)
	return t
}

// EffectiveMethod defaults to "web" when the client sent none.
func (r *PunchInRequest) EffectiveMethod() string {
	if r.Method == "" {
		return "web"
	}
	return r.Method
}

type PunchOutRequest struct {
	EmployeeID string `json:"employee_id"`
	Timestamp  string `json:"timestamp,omitempty"`
	Method     string `json:"method,omitempty"`
}

func (r *PunchOutRequest) Validate() error {
	in := PunchInRequest{EmployeeID: r.EmployeeID, Timestamp: r.Timestamp, Method: r.Method}
	return in.Validate()
}

func (r *PunchOutRequest) At(now time.Time) time.Time {
	in := PunchInRequest{Timestamp: r.Timestamp}
	return in.At(now)
}

func (r *PunchOutRequest) EffectiveMethod() string {
	in := PunchInRequest{Method: r.Method}
	return in.EffectiveMethod()
}

type CorrectAnomalyRequest struct {
	Note string `json:"note"`
}

func (r *CorrectAnomalyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Note) {
		errs = append(errs, validator.ValidationError{
			Field:   "note",
			Message: "note is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
