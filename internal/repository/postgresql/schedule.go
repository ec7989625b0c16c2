package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type shiftRepository struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) schedule.ShiftRepository {
	return &shiftRepository{db: db}
}

// GetByID implements schedule.ShiftRepository.
func (r *shiftRepository) GetByID(ctx context.Context, id string, tenantID string) (schedule.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, start_time, end_time, is_night_shift, created_at, updated_at
		FROM shifts
		WHERE id = $1 AND tenant_id = $2
	`

	var s schedule.Shift
	err := q.QueryRow(ctx, query, id, tenantID).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.StartTime, &s.EndTime, &s.IsNightShift,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Shift{}, schedule.ErrShiftNotFound
		}
		return schedule.Shift{}, fmt.Errorf("failed to get shift by ID: %w", err)
	}

	return s, nil
}

// ListByTenant implements schedule.ShiftRepository.
func (r *shiftRepository) ListByTenant(ctx context.Context, tenantID string) ([]schedule.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, start_time, end_time, is_night_shift, created_at, updated_at
		FROM shifts
		WHERE tenant_id = $1
		ORDER BY start_time
	`

	rows, err := q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []schedule.Shift
	for rows.Next() {
		var s schedule.Shift
		if err := rows.Scan(
			&s.ID, &s.TenantID, &s.Name, &s.StartTime, &s.EndTime, &s.IsNightShift,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, s)
	}

	return shifts, rows.Err()
}

type scheduleEntryRepository struct {
	db *database.DB
}

func NewScheduleEntryRepository(db *database.DB) schedule.EntryRepository {
	return &scheduleEntryRepository{db: db}
}

const entryColumns = `
	id, tenant_id, employee_id, date, shift_id,
	custom_start_time, custom_end_time, status, suspended_by_leave_id,
	created_at, updated_at`

func scanEntries(rows pgx.Rows) ([]schedule.Entry, error) {
	defer rows.Close()

	var entries []schedule.Entry
	for rows.Next() {
		var e schedule.Entry
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.EmployeeID, &e.Date, &e.ShiftID,
			&e.CustomStartTime, &e.CustomEndTime, &e.Status, &e.SuspendedByLeaveID,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ListByEmployeeAndDate implements schedule.EntryRepository.
func (r *scheduleEntryRepository) ListByEmployeeAndDate(ctx context.Context, tenantID, employeeID string, date time.Time) ([]schedule.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + entryColumns + `
		FROM schedule_entries
		WHERE tenant_id = $1 AND employee_id = $2 AND date = $3
		ORDER BY created_at
	`

	rows, err := q.Query(ctx, query, tenantID, employeeID, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule entries: %w", err)
	}

	return scanEntries(rows)
}

// ListByTenantAndDate implements schedule.EntryRepository.
func (r *scheduleEntryRepository) ListByTenantAndDate(ctx context.Context, tenantID string, date time.Time) ([]schedule.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + entryColumns + `
		FROM schedule_entries
		WHERE tenant_id = $1 AND date = $2
		ORDER BY employee_id, created_at
	`

	rows, err := q.Query(ctx, query, tenantID, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule entries: %w", err)
	}

	return scanEntries(rows)
}
