package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/leave"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
)

type leaveRepository struct {
	db *database.DB
}

func NewLeaveRepository(db *database.DB) leave.Repository {
	return &leaveRepository{db: db}
}

// ExistsApprovedLeave implements leave.Repository. The leave_periods table is
// written by the leave-approval workflow; this engine only reads it.
func (r *leaveRepository) ExistsApprovedLeave(ctx context.Context, tenantID, employeeID string, day time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM leave_periods
			WHERE tenant_id = $1 AND employee_id = $2
			  AND status = 'APPROVED'
			  AND start_date <= $3 AND end_date >= $3
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, tenantID, employeeID, day.Format("2006-01-02")).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check approved leave: %w", err)
	}

	return exists, nil
}
