package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func twoTenants() *testutil.TenantStore {
	return &testutil.TenantStore{Tenants: []tenant.Tenant{
		{ID: "t1", Active: true},
		{ID: "t2", Active: true},
		{ID: "t3", Active: false},
	}}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForEachTenantSkipsInactive(t *testing.T) {
	var seen []string
	forEachTenant(context.Background(), twoTenants(), discard(), "test", func(_ context.Context, tn tenant.Tenant) error {
		seen = append(seen, tn.ID)
		return nil
	})

	assert.Equal(t, []string{"t1", "t2"}, seen)
}

func TestForEachTenantContainsPanic(t *testing.T) {
	var seen []string
	forEachTenant(context.Background(), twoTenants(), discard(), "test", func(_ context.Context, tn tenant.Tenant) error {
		seen = append(seen, tn.ID)
		if tn.ID == "t1" {
			panic("boom")
		}
		return nil
	})

	// t1 panicked but t2 still ran.
	assert.Equal(t, []string{"t1", "t2"}, seen)
}

func TestForEachTenantContinuesAfterError(t *testing.T) {
	var seen []string
	forEachTenant(context.Background(), twoTenants(), discard(), "test", func(_ context.Context, tn tenant.Tenant) error {
		seen = append(seen, tn.ID)
		return errors.New("tenant-level failure")
	})

	assert.Equal(t, []string{"t1", "t2"}, seen)
}
