package recovery

import (
	"context"
	"time"
)

type Repository interface {
	CreateGrant(ctx context.Context, grant Grant) (Grant, error)

	GetGrantByID(ctx context.Context, id string, tenantID string) (Grant, error)

	ListGrantsByIDs(ctx context.Context, tenantID string, ids []string) ([]Grant, error)

	UpdateGrantStatus(ctx context.Context, id, tenantID string, status GrantStatus, justification *string) error

	// ListGrantsEndedBefore returns grants of one status whose end date is
	// strictly before the given day. Drives the daily expiry sweep.
	ListGrantsEndedBefore(ctx context.Context, tenantID string, status GrantStatus, day time.Time) ([]Grant, error)

	CreateLink(ctx context.Context, link Link) (Link, error)

	ListLinksByOvertime(ctx context.Context, overtimeID string) ([]Link, error)

	ListLinksByGrants(ctx context.Context, grantIDs []string) ([]Link, error)

	DeleteLinksByGrants(ctx context.Context, grantIDs []string) error

	// ExistsActiveGrantCovering reports whether the employee has a PENDING
	// or APPROVED grant whose date range covers the given day. Used to
	// exclude employees already resting from detection and consolidation.
	ExistsActiveGrantCovering(ctx context.Context, tenantID, employeeID string, day time.Time) (bool, error)
}
