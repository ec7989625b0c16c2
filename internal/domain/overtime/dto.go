package overtime

import (
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type ApproveRequest struct {
	ApprovedHours *string `json:"approved_hours,omitempty"` // decimal string; nil approves in full
}

func (r *ApproveRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.ApprovedHours != nil {
		d, err := decimal.NewFromString(*r.ApprovedHours)
		if err != nil || d.IsNegative() {
			errs = append(errs, validator.ValidationError{
				Field:   "approved_hours",
				Message: "approved_hours must be a non-negative decimal",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Hours returns the parsed approved hours, nil for a full approval.
// Call only after Validate.
func (r *ApproveRequest) Hours() *decimal.Decimal {
	if r.ApprovedHours == nil {
		return nil
	}
	d, _ := decimal.NewFromString(*r.ApprovedHours)
	return &d
}

type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}
