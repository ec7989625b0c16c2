package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type overtimeRepository struct {
	db *database.DB
}

func NewOvertimeRepository(db *database.DB) overtime.Repository {
	return &overtimeRepository{db: db}
}

const overtimeColumns = `
	id, tenant_id, employee_id, work_date, hours,
	approved_hours, status, type,
	converted_to_recovery, converted_to_recovery_days,
	note, source_event_id, created_at, updated_at`

func scanOvertime(row pgx.Row) (overtime.Entry, error) {
	var e overtime.Entry
	err := row.Scan(
		&e.ID, &e.TenantID, &e.EmployeeID, &e.Date, &e.Hours,
		&e.ApprovedHours, &e.Status, &e.Type,
		&e.ConvertedToRecovery, &e.ConvertedToRecoveryDays,
		&e.Note, &e.SourceEventID, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// CreateIfAbsent implements overtime.Repository. The conditional insert rides
// on the (tenant_id, employee_id, work_date) unique index so the real-time
// punch path and the consolidation sweep cannot both create an entry.
func (r *overtimeRepository) CreateIfAbsent(ctx context.Context, entry overtime.Entry) (overtime.Entry, bool, error) {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO overtime_entries (
			id, tenant_id, employee_id, work_date, hours,
			approved_hours, status, type,
			converted_to_recovery, converted_to_recovery_days,
			note, source_event_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (tenant_id, employee_id, work_date) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.EmployeeID,
		entry.Date.Format("2006-01-02"),
		entry.Hours,
		entry.ApprovedHours,
		entry.Status,
		entry.Type,
		entry.ConvertedToRecovery,
		entry.ConvertedToRecoveryDays,
		entry.Note,
		entry.SourceEventID,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict: an entry already exists for this work date.
			return overtime.Entry{}, false, nil
		}
		return overtime.Entry{}, false, fmt.Errorf("failed to create overtime entry: %w", err)
	}

	return entry, true, nil
}

// GetByID implements overtime.Repository.
func (r *overtimeRepository) GetByID(ctx context.Context, id string, tenantID string) (overtime.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + overtimeColumns + ` FROM overtime_entries WHERE id = $1 AND tenant_id = $2`

	e, err := scanOvertime(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overtime.Entry{}, overtime.ErrEntryNotFound
		}
		return overtime.Entry{}, fmt.Errorf("failed to get overtime entry by ID: %w", err)
	}

	return e, nil
}

// GetByEmployeeAndWorkDate implements overtime.Repository.
func (r *overtimeRepository) GetByEmployeeAndWorkDate(ctx context.Context, tenantID, employeeID string, workDate time.Time) (*overtime.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + overtimeColumns + `
		FROM overtime_entries
		WHERE tenant_id = $1 AND employee_id = $2 AND work_date = $3
	`

	e, err := scanOvertime(q.QueryRow(ctx, query, tenantID, employeeID, workDate.Format("2006-01-02")))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get overtime entry by work date: %w", err)
	}

	return &e, nil
}

// ListByIDs implements overtime.Repository.
func (r *overtimeRepository) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]overtime.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + overtimeColumns + `
		FROM overtime_entries
		WHERE tenant_id = $1 AND id = ANY($2)
		FOR UPDATE
	`

	rows, err := q.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime entries: %w", err)
	}
	defer rows.Close()

	var entries []overtime.Entry
	for rows.Next() {
		e, err := scanOvertime(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ListConvertibleByEmployee implements overtime.Repository. Ordering by work
// date then creation time is what the FIFO conversion relies on. The rows are
// locked so two conversions running at once cannot both spend the same hours.
func (r *overtimeRepository) ListConvertibleByEmployee(ctx context.Context, tenantID, employeeID string) ([]overtime.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + overtimeColumns + `
		FROM overtime_entries
		WHERE tenant_id = $1 AND employee_id = $2
		  AND status = 'APPROVED'
		  AND COALESCE(approved_hours, hours) - converted_to_recovery - converted_to_recovery_days > 0
		ORDER BY work_date ASC, created_at ASC
		FOR UPDATE
	`

	rows, err := q.Query(ctx, query, tenantID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query convertible overtime entries: %w", err)
	}
	defer rows.Close()

	var entries []overtime.Entry
	for rows.Next() {
		e, err := scanOvertime(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// SumHoursBetween implements overtime.Repository.
func (r *overtimeRepository) SumHoursBetween(ctx context.Context, tenantID, employeeID string, from, to time.Time) (decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(hours), 0)
		FROM overtime_entries
		WHERE tenant_id = $1 AND employee_id = $2
		  AND work_date >= $3 AND work_date <= $4
		  AND status <> 'REJECTED'
	`

	var total decimal.Decimal
	err := q.QueryRow(ctx, query, tenantID, employeeID,
		from.Format("2006-01-02"), to.Format("2006-01-02")).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum overtime hours: %w", err)
	}

	return total, nil
}

// Update implements overtime.Repository.
func (r *overtimeRepository) Update(ctx context.Context, entry overtime.Entry) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE overtime_entries
		SET approved_hours = $1,
		    status = $2,
		    converted_to_recovery = $3,
		    converted_to_recovery_days = $4,
		    note = $5,
		    updated_at = $6
		WHERE id = $7 AND tenant_id = $8
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query,
		entry.ApprovedHours,
		entry.Status,
		entry.ConvertedToRecovery,
		entry.ConvertedToRecoveryDays,
		entry.Note,
		time.Now(),
		entry.ID,
		entry.TenantID,
	).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overtime.ErrEntryNotFound
		}
		return fmt.Errorf("failed to update overtime entry: %w", err)
	}

	return nil
}
