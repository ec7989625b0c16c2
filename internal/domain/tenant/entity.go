package tenant

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant is one customer account. Every job iterates tenants independently;
// nothing is shared across them.
type Tenant struct {
	ID        string
	Name      string
	Timezone  string // IANA name, e.g. "Europe/Paris"
	Active    bool
	Settings  Settings
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location resolves the tenant timezone, falling back to UTC when the stored
// name is invalid.
func (t Tenant) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Settings is the resolved per-tenant configuration, loaded once per job run.
// Detection and ledger code reads these fields directly instead of re-deriving
// fallbacks ad hoc.
type Settings struct {
	// Anomaly detection
	DetectionWindowMinutes       int // MISSING_IN / MISSING_OUT grace past the shift boundary
	LateToleranceMinutes         int // arrival grace before an IN counts as LATE
	LateNotifyThresholdMinutes   int // lateness below this is recorded but not escalated
	AbsenceBufferMinutes         int // wait past shift end before evaluating ABSENCE
	AbsenceStartToleranceMinutes int // a real punch within +/- this of the expected start vetoes ABSENCE
	PartialLookbackHours         int // OUT without IN lookback for ABSENCE_PARTIAL

	// Auto-close
	AutoCloseOvertimeBufferMinutes int // pad on the synthetic OUT when no approved overtime exists

	// Overtime
	MinOvertimeMinutes      int
	WeeklyOvertimeCapHours  decimal.Decimal // zero disables the cap
	MonthlyOvertimeCapHours decimal.Decimal // zero disables the cap
	AutoApproveMaxHours     decimal.Decimal // zero disables auto-approval
	NightWindowStart        string          // "21:00"
	NightWindowEnd          string          // "06:00"

	// Recovery-day conversion
	ConversionRate    decimal.Decimal // overtime hours -> recovery hours multiplier
	DailyWorkingHours decimal.Decimal

	// Shift window fallback of last resort
	DefaultCloseTime string // "18:00"; empty means no tenant default
}
