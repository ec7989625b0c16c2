package schedule

import "time"

// Shift is immutable reference data. Times are wall-clock "15:04" strings
// interpreted in the tenant timezone.
type Shift struct {
	ID           string
	TenantID     string
	Name         string
	StartTime    string
	EndTime      string
	IsNightShift bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type EntryStatus string

const (
	EntryPublished        EntryStatus = "PUBLISHED"
	EntrySuspendedByLeave EntryStatus = "SUSPENDED_BY_LEAVE"
)

// Entry is one planned day of work for an employee. Owned by scheduling;
// this engine reads it and only consumes the leave-suspension linkage.
type Entry struct {
	ID                 string
	TenantID           string
	EmployeeID         string
	Date               time.Time // calendar day, midnight UTC in storage
	ShiftID            string
	CustomStartTime    *string // "15:04" override for that day
	CustomEndTime      *string
	Status             EntryStatus
	SuspendedByLeaveID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
