package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenantHandler(t *testing.T) (http.Handler, *bool) {
	t.Helper()

	store := &testutil.TenantStore{Tenants: []tenant.Tenant{
		{ID: "t1", Active: true},
		{ID: "t2", Active: false},
	}}

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tn, ok := TenantFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "t1", tn.ID)
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	return TenantRequired(store)(next), &reached
}

func TestTenantRequiredMissingHeader(t *testing.T) {
	h, reached := tenantHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, *reached)
}

func TestTenantRequiredUnknownTenant(t *testing.T) {
	h, reached := tenantHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, *reached)
}

func TestTenantRequiredInactiveTenant(t *testing.T) {
	h, reached := tenantHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "t2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
}

func TestTenantRequiredPassesTenantThrough(t *testing.T) {
	h, reached := tenantHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}
