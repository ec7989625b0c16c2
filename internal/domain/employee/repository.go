package employee

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string, tenantID string) (Employee, error)
	ListActiveByTenant(ctx context.Context, tenantID string) ([]Employee, error)
}
