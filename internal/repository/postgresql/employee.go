package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.Repository {
	return &employeeRepository{db: db}
}

// GetByID implements employee.Repository.
func (r *employeeRepository) GetByID(ctx context.Context, id string, tenantID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, full_name, default_shift_id, overtime_eligible, status, created_at, updated_at
		FROM employees
		WHERE id = $1 AND tenant_id = $2
	`

	var emp employee.Employee
	err := q.QueryRow(ctx, query, id, tenantID).Scan(
		&emp.ID, &emp.TenantID, &emp.FullName, &emp.DefaultShiftID,
		&emp.OvertimeEligible, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by ID: %w", err)
	}

	return emp, nil
}

// ListActiveByTenant implements employee.Repository.
func (r *employeeRepository) ListActiveByTenant(ctx context.Context, tenantID string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, full_name, default_shift_id, overtime_eligible, status, created_at, updated_at
		FROM employees
		WHERE tenant_id = $1 AND status = 'active'
		ORDER BY full_name
	`

	rows, err := q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		var emp employee.Employee
		if err := rows.Scan(
			&emp.ID, &emp.TenantID, &emp.FullName, &emp.DefaultShiftID,
			&emp.OvertimeEligible, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}

	return employees, rows.Err()
}
