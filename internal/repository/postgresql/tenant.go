package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type tenantRepository struct {
	db *database.DB
}

func NewTenantRepository(db *database.DB) tenant.Repository {
	return &tenantRepository{db: db}
}

const tenantColumns = `
	id, name, timezone, active,
	detection_window_minutes, late_tolerance_minutes, late_notify_threshold_minutes,
	absence_buffer_minutes, absence_start_tolerance_minutes, partial_lookback_hours,
	auto_close_overtime_buffer_minutes,
	min_overtime_minutes, weekly_overtime_cap_hours, monthly_overtime_cap_hours,
	auto_approve_max_hours, night_window_start, night_window_end,
	conversion_rate, daily_working_hours, default_close_time,
	created_at, updated_at`

func scanTenant(row pgx.Row) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.Timezone, &t.Active,
		&t.Settings.DetectionWindowMinutes, &t.Settings.LateToleranceMinutes, &t.Settings.LateNotifyThresholdMinutes,
		&t.Settings.AbsenceBufferMinutes, &t.Settings.AbsenceStartToleranceMinutes, &t.Settings.PartialLookbackHours,
		&t.Settings.AutoCloseOvertimeBufferMinutes,
		&t.Settings.MinOvertimeMinutes, &t.Settings.WeeklyOvertimeCapHours, &t.Settings.MonthlyOvertimeCapHours,
		&t.Settings.AutoApproveMaxHours, &t.Settings.NightWindowStart, &t.Settings.NightWindowEnd,
		&t.Settings.ConversionRate, &t.Settings.DailyWorkingHours, &t.Settings.DefaultCloseTime,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// GetByID implements tenant.Repository.
func (r *tenantRepository) GetByID(ctx context.Context, id string) (tenant.Tenant, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	t, err := scanTenant(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.Tenant{}, tenant.ErrTenantNotFound
		}
		return tenant.Tenant{}, fmt.Errorf("failed to get tenant by ID: %w", err)
	}

	return t, nil
}

// ListActive implements tenant.Repository.
func (r *tenantRepository) ListActive(ctx context.Context) ([]tenant.Tenant, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE active ORDER BY created_at`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

type tenantHolidayRepository struct {
	db *database.DB
}

func NewTenantHolidayRepository(db *database.DB) tenant.HolidayRepository {
	return &tenantHolidayRepository{db: db}
}

// IsHoliday implements tenant.HolidayRepository.
func (r *tenantHolidayRepository) IsHoliday(ctx context.Context, tenantID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM tenant_holidays
			WHERE tenant_id = $1 AND date = $2
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, tenantID, date.Format("2006-01-02")).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tenant holiday: %w", err)
	}

	return exists, nil
}
