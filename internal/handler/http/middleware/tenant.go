package middleware

import (
	"context"
	"net/http"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/response"
)

type tenantKey struct{}

// TenantRequired resolves the X-Tenant-ID header to a tenant row and stores
// it in the request context. Requests without a valid tenant never reach a
// handler.
func TenantRequired(tenantRepo tenant.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Tenant-ID")
			if id == "" {
				response.BadRequest(w, "X-Tenant-ID header is required", nil)
				return
			}

			tn, err := tenantRepo.GetByID(r.Context(), id)
			if err != nil {
				response.HandleError(w, err)
				return
			}
			if !tn.Active {
				response.Forbidden(w, "Tenant is not active")
				return
			}

			ctx := context.WithValue(r.Context(), tenantKey{}, tn)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant stored by TenantRequired.
func TenantFromContext(ctx context.Context) (tenant.Tenant, bool) {
	tn, ok := ctx.Value(tenantKey{}).(tenant.Tenant)
	return tn, ok
}
