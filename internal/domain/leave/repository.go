// Package leave is the read-only boundary to the leave-approval workflow.
// This engine never mutates leave; it only asks whether an employee is
// covered by an approved leave on a given day.
package leave

import (
	"context"
	"time"
)

type Repository interface {
	ExistsApprovedLeave(ctx context.Context, tenantID, employeeID string, day time.Time) (bool, error)
}
