package recovery

import (
	"time"

	"github.com/shopspring/decimal"
)

type GrantStatus string

const (
	GrantPending   GrantStatus = "PENDING"
	GrantApproved  GrantStatus = "APPROVED"
	GrantUsed      GrantStatus = "USED"
	GrantCancelled GrantStatus = "CANCELLED"
)

// Grant is a block of recovery days funded by converted overtime hours.
// Grants are never physically deleted; cancellation flips the status so the
// audit trail survives.
type Grant struct {
	ID         string
	TenantID   string
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
	Days       int
	// SourceHours is exactly the overtime hours consumed to fund the grant;
	// cancellation restores this amount, no more, no less.
	SourceHours   decimal.Decimal
	Status        GrantStatus
	Justification *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Link records how much of one overtime entry funded one grant. For any
// overtime entry the sum of HoursUsed across its links equals its
// ConvertedToRecoveryDays counter.
type Link struct {
	ID             string
	OvertimeID     string
	RecoveryDayID  string
	HoursUsed      decimal.Decimal
	CreatedAt      time.Time
}
