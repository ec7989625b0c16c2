package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type recoveryRepository struct {
	db *database.DB
}

func NewRecoveryRepository(db *database.DB) recovery.Repository {
	return &recoveryRepository{db: db}
}

const grantColumns = `
	id, tenant_id, employee_id, start_date, end_date, days,
	source_hours, status, justification, created_at, updated_at`

func scanGrant(row pgx.Row) (recovery.Grant, error) {
	var g recovery.Grant
	err := row.Scan(
		&g.ID, &g.TenantID, &g.EmployeeID, &g.StartDate, &g.EndDate, &g.Days,
		&g.SourceHours, &g.Status, &g.Justification, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

// CreateGrant implements recovery.Repository.
func (r *recoveryRepository) CreateGrant(ctx context.Context, grant recovery.Grant) (recovery.Grant, error) {
	q := GetQuerier(ctx, r.db)

	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}

	query := `
		INSERT INTO recovery_day_grants (
			id, tenant_id, employee_id, start_date, end_date, days,
			source_hours, status, justification
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		grant.ID,
		grant.TenantID,
		grant.EmployeeID,
		grant.StartDate.Format("2006-01-02"),
		grant.EndDate.Format("2006-01-02"),
		grant.Days,
		grant.SourceHours,
		grant.Status,
		grant.Justification,
	).Scan(&grant.CreatedAt, &grant.UpdatedAt)
	if err != nil {
		return recovery.Grant{}, fmt.Errorf("failed to create recovery day grant: %w", err)
	}

	return grant, nil
}

// GetGrantByID implements recovery.Repository.
func (r *recoveryRepository) GetGrantByID(ctx context.Context, id string, tenantID string) (recovery.Grant, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + grantColumns + ` FROM recovery_day_grants WHERE id = $1 AND tenant_id = $2`

	g, err := scanGrant(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recovery.Grant{}, recovery.ErrGrantNotFound
		}
		return recovery.Grant{}, fmt.Errorf("failed to get recovery day grant by ID: %w", err)
	}

	return g, nil
}

// ListGrantsByIDs implements recovery.Repository.
func (r *recoveryRepository) ListGrantsByIDs(ctx context.Context, tenantID string, ids []string) ([]recovery.Grant, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + grantColumns + ` FROM recovery_day_grants WHERE tenant_id = $1 AND id = ANY($2) FOR UPDATE`

	rows, err := q.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query recovery day grants: %w", err)
	}
	defer rows.Close()

	var grants []recovery.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recovery day grant: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// UpdateGrantStatus implements recovery.Repository.
func (r *recoveryRepository) UpdateGrantStatus(ctx context.Context, id, tenantID string, status recovery.GrantStatus, justification *string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE recovery_day_grants
		SET status = $1,
		    justification = COALESCE($2, justification),
		    updated_at = $3
		WHERE id = $4 AND tenant_id = $5
		RETURNING id
	`

	var updatedID string
	if err := q.QueryRow(ctx, query, status, justification, time.Now(), id, tenantID).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recovery.ErrGrantNotFound
		}
		return fmt.Errorf("failed to update recovery day grant status: %w", err)
	}

	return nil
}

// ListGrantsEndedBefore implements recovery.Repository.
func (r *recoveryRepository) ListGrantsEndedBefore(ctx context.Context, tenantID string, status recovery.GrantStatus, day time.Time) ([]recovery.Grant, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + grantColumns + `
		FROM recovery_day_grants
		WHERE tenant_id = $1 AND status = $2 AND end_date < $3
		ORDER BY end_date
	`

	rows, err := q.Query(ctx, query, tenantID, status, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired recovery day grants: %w", err)
	}
	defer rows.Close()

	var grants []recovery.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recovery day grant: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// CreateLink implements recovery.Repository.
func (r *recoveryRepository) CreateLink(ctx context.Context, link recovery.Link) (recovery.Link, error) {
	q := GetQuerier(ctx, r.db)

	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	query := `
		INSERT INTO overtime_recovery_links (id, overtime_id, recovery_day_id, hours_used)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query, link.ID, link.OvertimeID, link.RecoveryDayID, link.HoursUsed).
		Scan(&link.CreatedAt)
	if err != nil {
		return recovery.Link{}, fmt.Errorf("failed to create overtime recovery link: %w", err)
	}

	return link, nil
}

const linkColumns = `id, overtime_id, recovery_day_id, hours_used, created_at`

func scanLinks(rows pgx.Rows) ([]recovery.Link, error) {
	defer rows.Close()

	var links []recovery.Link
	for rows.Next() {
		var l recovery.Link
		if err := rows.Scan(&l.ID, &l.OvertimeID, &l.RecoveryDayID, &l.HoursUsed, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan overtime recovery link: %w", err)
		}
		links = append(links, l)
	}

	return links, rows.Err()
}

// ListLinksByOvertime implements recovery.Repository.
func (r *recoveryRepository) ListLinksByOvertime(ctx context.Context, overtimeID string) ([]recovery.Link, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + linkColumns + ` FROM overtime_recovery_links WHERE overtime_id = $1 ORDER BY created_at`

	rows, err := q.Query(ctx, query, overtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime recovery links: %w", err)
	}

	return scanLinks(rows)
}

// ListLinksByGrants implements recovery.Repository.
func (r *recoveryRepository) ListLinksByGrants(ctx context.Context, grantIDs []string) ([]recovery.Link, error) {
	if len(grantIDs) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + linkColumns + ` FROM overtime_recovery_links WHERE recovery_day_id = ANY($1) ORDER BY created_at`

	rows, err := q.Query(ctx, query, grantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime recovery links: %w", err)
	}

	return scanLinks(rows)
}

// DeleteLinksByGrants implements recovery.Repository.
func (r *recoveryRepository) DeleteLinksByGrants(ctx context.Context, grantIDs []string) error {
	if len(grantIDs) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM overtime_recovery_links WHERE recovery_day_id = ANY($1)`

	if _, err := q.Exec(ctx, query, grantIDs); err != nil {
		return fmt.Errorf("failed to delete overtime recovery links: %w", err)
	}

	return nil
}

// ExistsActiveGrantCovering implements recovery.Repository.
func (r *recoveryRepository) ExistsActiveGrantCovering(ctx context.Context, tenantID, employeeID string, day time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM recovery_day_grants
			WHERE tenant_id = $1 AND employee_id = $2
			  AND status IN ('PENDING', 'APPROVED')
			  AND start_date <= $3 AND end_date >= $3
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, tenantID, employeeID, day.Format("2006-01-02")).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active recovery day grants: %w", err)
	}

	return exists, nil
}
