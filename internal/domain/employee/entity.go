package employee

import "time"

type EmploymentStatus string

const (
	StatusActive   EmploymentStatus = "active"
	StatusInactive EmploymentStatus = "inactive"
)

type Employee struct {
	ID               string
	TenantID         string
	FullName         string
	DefaultShiftID   *string
	OvertimeEligible bool
	Status           EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
