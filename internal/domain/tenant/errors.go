package tenant

import "errors"

var (
	ErrTenantNotFound = errors.New("tenant not found")
)
