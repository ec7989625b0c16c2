package tenant

import (
	"context"
	"time"
)

// Repository reads tenant rows. Write access belongs to the administration
// surface, not this engine.
type Repository interface {
	GetByID(ctx context.Context, id string) (Tenant, error)
	ListActive(ctx context.Context) ([]Tenant, error)
}

// HolidayRepository answers whether a calendar date is a tenant holiday.
// Consumed by overtime classification.
type HolidayRepository interface {
	IsHoliday(ctx context.Context, tenantID string, date time.Time) (bool, error)
}
