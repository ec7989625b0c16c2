package overtime

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusPaid      Status = "PAID"
	StatusRecovered Status = "RECOVERED"
)

type Type string

const (
	TypeStandard Type = "STANDARD"
	TypeNight    Type = "NIGHT"
	TypeHoliday  Type = "HOLIDAY"
)

// Entry is one overtime line, unique per (tenant, employee, work date).
// The work date comes from the matching IN punch so night-shift hours stay
// attributed to the day the shift started.
//
// Invariant, at every observable point:
//
//	ConvertedToRecovery + ConvertedToRecoveryDays <= coalesce(ApprovedHours, Hours)
type Entry struct {
	ID         string
	TenantID   string
	EmployeeID string
	Date       time.Time // work date
	Hours      decimal.Decimal

	ApprovedHours *decimal.Decimal
	Status        Status
	Type          Type

	ConvertedToRecovery     decimal.Decimal // hours already converted to paid rest
	ConvertedToRecoveryDays decimal.Decimal // hours consumed by recovery-day grants

	Note          *string
	SourceEventID *string // OUT event this entry was derived from, when known

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveHours is the convertible base: approved hours when set, recorded
// hours otherwise.
func (e Entry) EffectiveHours() decimal.Decimal {
	if e.ApprovedHours != nil {
		return *e.ApprovedHours
	}
	return e.Hours
}

// AvailableHours is what remains convertible into recovery days.
func (e Entry) AvailableHours() decimal.Decimal {
	return e.EffectiveHours().Sub(e.ConvertedToRecovery).Sub(e.ConvertedToRecoveryDays)
}
