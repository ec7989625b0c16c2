package overtime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// CreateIfAbsent inserts the entry unless one already exists for the
	// same (tenant, employee, work date). The uniqueness lives in a DB
	// constraint so concurrent real-time and batch writers cannot race a
	// duplicate into existence. Returns created=false when a row existed.
	CreateIfAbsent(ctx context.Context, entry Entry) (Entry, bool, error)

	GetByID(ctx context.Context, id string, tenantID string) (Entry, error)

	// GetByEmployeeAndWorkDate returns nil when no entry exists.
	GetByEmployeeAndWorkDate(ctx context.Context, tenantID, employeeID string, workDate time.Time) (*Entry, error)

	// ListByIDs preserves no particular order; callers sort.
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]Entry, error)

	// ListConvertibleByEmployee returns APPROVED entries that still have
	// available hours, oldest work date first, creation time as tiebreak.
	// This ordering is what makes recovery-day funding FIFO.
	ListConvertibleByEmployee(ctx context.Context, tenantID, employeeID string) ([]Entry, error)

	// SumHoursBetween totals recorded hours of non-rejected entries in
	// [from, to]. Used for weekly/monthly caps.
	SumHoursBetween(ctx context.Context, tenantID, employeeID string, from, to time.Time) (decimal.Decimal, error)

	// Update persists status, approved hours, conversion counters and note.
	Update(ctx context.Context, entry Entry) error
}
