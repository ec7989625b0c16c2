package attendance

import (
	"context"
	"time"
)

// EventRepository defines data access for the punch ledger.
// All methods carry tenantID to prevent cross-tenant access.
type EventRepository interface {
	Create(ctx context.Context, event Event) (Event, error)

	GetByID(ctx context.Context, id string, tenantID string) (Event, error)

	// Update persists anomaly flags, notes and computed minutes. The
	// timestamp and kind of an existing event are never rewritten here.
	Update(ctx context.Context, event Event) error

	// GetOpenIn returns the most recent real IN for the employee with no
	// later OUT, looking back at most lookback from asOf. Nil when the
	// employee has no open session.
	GetOpenIn(ctx context.Context, tenantID, employeeID string, asOf time.Time, lookback time.Duration) (*Event, error)

	// ListOpenIns returns real IN events since the given instant that have
	// no matching OUT, across all employees of the tenant.
	ListOpenIns(ctx context.Context, tenantID string, since time.Time) ([]Event, error)

	// ListFlaggedIns returns real INs since the given instant carrying the
	// given anomaly kind, open or not. The auto-close engine revisits them
	// to either close the session or clear a stale flag.
	ListFlaggedIns(ctx context.Context, tenantID string, kind AnomalyKind, since time.Time) ([]Event, error)

	// FindMatchingOut returns the first OUT after the given instant within
	// the window, or nil.
	FindMatchingOut(ctx context.Context, tenantID, employeeID string, after time.Time, within time.Duration) (*Event, error)

	// FindMatchingIn returns the closest real IN before the given instant
	// within the window, or nil. Used to attribute night-shift OUTs to the
	// IN's calendar date.
	FindMatchingIn(ctx context.Context, tenantID, employeeID string, before time.Time, within time.Duration) (*Event, error)

	// ExistsRealPunchBetween reports whether any non-generated punch exists
	// in [from, to).
	ExistsRealPunchBetween(ctx context.Context, tenantID, employeeID string, from, to time.Time) (bool, error)

	// ExistsKindBetween reports whether a real punch of the given kind
	// exists in [from, to).
	ExistsKindBetween(ctx context.Context, tenantID, employeeID string, kind PunchKind, from, to time.Time) (bool, error)

	// ExistsGeneratedBetween reports whether a generated event from the
	// given producer exists in [from, to). Idempotency guard for sweeps.
	ExistsGeneratedBetween(ctx context.Context, tenantID, employeeID string, generatedBy string, from, to time.Time) (bool, error)

	// ListKindBetween returns real punches of one kind for the whole tenant
	// in [from, to), ordered by timestamp.
	ListKindBetween(ctx context.Context, tenantID string, kind PunchKind, from, to time.Time) ([]Event, error)

	// ListOutsWithOvertimeBetween returns OUT events in [from, to) whose
	// recorded overtime minutes meet the threshold.
	ListOutsWithOvertimeBetween(ctx context.Context, tenantID string, from, to time.Time, minMinutes int) ([]Event, error)

	// ListAnomaliesBetween returns events flagged with any anomaly in
	// [from, to).
	ListAnomaliesBetween(ctx context.Context, tenantID string, from, to time.Time) ([]Event, error)
}
