package cron

import (
	"context"
	"log/slog"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
)

// TenantJob is one batch engine entry point, run once per active tenant.
type TenantJob func(ctx context.Context, tn tenant.Tenant) error

// Jobs collects the batch engines in schedule order.
type Jobs struct {
	DetectAnomalies TenantJob // hourly catch-up for MISSING_IN / MISSING_OUT / LATE
	DetectAbsences  TenantJob // nightly pass that settles yesterday's ABSENCE checks
	AutoClose       TenantJob
	Consolidate     TenantJob
	ExpireRecovery  TenantJob
}

// Register wires the standard schedule. Each slot walks every active tenant
// sequentially; a panic or error inside one tenant is logged and the next
// tenant still runs.
func Register(s *Scheduler, tenantRepo tenant.Repository, logger *slog.Logger, jobs Jobs) error {
	schedule := []struct {
		name string
		spec string
		job  TenantJob
	}{
		{"detect_attendance_anomalies", "0 * * * *", jobs.DetectAnomalies},
		{"detect_absences", "30 1 * * *", jobs.DetectAbsences},
		{"auto_close_sessions", "0 2 * * *", jobs.AutoClose},
		{"consolidate_overtime", "30 2 * * *", jobs.Consolidate},
		{"expire_recovery_days", "0 3 * * *", jobs.ExpireRecovery},
	}

	for _, entry := range schedule {
		entry := entry
		err := s.AddJob(entry.name, entry.spec, func(ctx context.Context) {
			forEachTenant(ctx, tenantRepo, logger, entry.name, entry.job)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func forEachTenant(ctx context.Context, tenantRepo tenant.Repository, logger *slog.Logger, name string, job TenantJob) {
	tenants, err := tenantRepo.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list active tenants",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, tn := range tenants {
		runTenant(ctx, logger, name, tn, job)
	}
}

func runTenant(ctx context.Context, logger *slog.Logger, name string, tn tenant.Tenant, job TenantJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked for tenant",
				slog.String("job", name),
				slog.String("tenant_id", tn.ID),
				slog.Any("panic", r),
			)
		}
	}()

	if err := job(ctx, tn); err != nil {
		logger.Error("job failed for tenant",
			slog.String("job", name),
			slog.String("tenant_id", tn.ID),
			slog.String("error", err.Error()),
		)
	}
}
