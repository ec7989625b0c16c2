package overtime

import "errors"

var (
	ErrEntryNotFound       = errors.New("overtime entry not found")
	ErrApprovalNotAllowed  = errors.New("actor is not allowed to approve overtime")
	ErrAlreadyProcessed    = errors.New("overtime entry has already been approved or rejected")
	ErrNotApproved         = errors.New("overtime entry is not approved")
	ErrApprovedOverHours   = errors.New("approved hours cannot exceed recorded hours")
	ErrNothingAvailable    = errors.New("overtime entry has no available hours")
	ErrEmployeeNotEligible = errors.New("employee is not overtime eligible")
)
