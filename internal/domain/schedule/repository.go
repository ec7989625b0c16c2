package schedule

import (
	"context"
	"time"
)

type ShiftRepository interface {
	GetByID(ctx context.Context, id string, tenantID string) (Shift, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Shift, error)
}

type EntryRepository interface {
	// ListByEmployeeAndDate returns all entries for one employee on one
	// calendar day, any status. Callers filter on PUBLISHED.
	ListByEmployeeAndDate(ctx context.Context, tenantID, employeeID string, date time.Time) ([]Entry, error)

	// ListByTenantAndDate returns all entries for a tenant on one day,
	// used by the batch sweeps.
	ListByTenantAndDate(ctx context.Context, tenantID string, date time.Time) ([]Entry, error)
}
