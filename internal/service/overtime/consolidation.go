package overtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/leave"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/service/shiftwindow"
)

// sweepLookback is how far back the consolidation sweep rescans OUT events.
// Two days covers night shifts and one missed run.
const sweepLookback = 48 * time.Hour

// Consolidator is the batch safety net behind the real-time punch path: it
// rescans recent OUT events carrying overtime minutes and creates any entry
// the real-time path did not. The per-work-date conditional insert makes the
// two paths converge instead of colliding.
type Consolidator struct {
	svc          *Service
	eventRepo    attendance.EventRepository
	employeeRepo employee.Repository
	leaveRepo    leave.Repository
	recoveryRepo recovery.Repository
	windows      *shiftwindow.Service
	logger       *slog.Logger

	now func() time.Time
}

func NewConsolidator(
	svc *Service,
	eventRepo attendance.EventRepository,
	employeeRepo employee.Repository,
	leaveRepo leave.Repository,
	recoveryRepo recovery.Repository,
	windows *shiftwindow.Service,
	logger *slog.Logger,
) *Consolidator {
	return &Consolidator{
		svc:          svc,
		eventRepo:    eventRepo,
		employeeRepo: employeeRepo,
		leaveRepo:    leaveRepo,
		recoveryRepo: recoveryRepo,
		windows:      windows,
		logger:       logger,
		now:          time.Now,
	}
}

// Run consolidates one tenant. Per-session failures are logged and skipped.
func (c *Consolidator) Run(ctx context.Context, tn tenant.Tenant) error {
	now := c.now()

	outs, err := c.eventRepo.ListOutsWithOvertimeBetween(ctx, tn.ID, now.Add(-sweepLookback), now, tn.Settings.MinOvertimeMinutes)
	if err != nil {
		return fmt.Errorf("failed to list overtime OUT events: %w", err)
	}
	if len(outs) == 0 {
		return nil
	}

	shifts, err := c.windows.ShiftMap(ctx, tn.ID)
	if err != nil {
		return err
	}

	for _, out := range outs {
		if err := c.consolidate(ctx, tn, shifts, out); err != nil {
			c.logger.Error("consolidation failed for session",
				slog.String("tenant_id", tn.ID),
				slog.String("employee_id", out.EmployeeID),
				slog.String("event_id", out.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

func (c *Consolidator) consolidate(ctx context.Context, tn tenant.Tenant, shifts map[string]schedule.Shift, out attendance.Event) error {
	// Night-shift OUTs land on the day after the session: attribute the work
	// date to the matching IN, not the OUT.
	in, err := c.eventRepo.FindMatchingIn(ctx, tn.ID, out.EmployeeID, out.Timestamp, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to find matching IN: %w", err)
	}
	if in == nil {
		return nil
	}

	emp, err := c.employeeRepo.GetByID(ctx, out.EmployeeID, tn.ID)
	if err != nil {
		return err
	}
	if !emp.OvertimeEligible {
		return nil
	}

	loc := tn.Location()
	inLocal := in.Timestamp.In(loc)
	workDate := time.Date(inLocal.Year(), inLocal.Month(), inLocal.Day(), 0, 0, 0, 0, time.UTC)

	onLeave, err := c.leaveRepo.ExistsApprovedLeave(ctx, tn.ID, emp.ID, workDate)
	if err != nil {
		return fmt.Errorf("failed to check leave: %w", err)
	}
	if onLeave {
		return nil
	}

	resting, err := c.recoveryRepo.ExistsActiveGrantCovering(ctx, tn.ID, emp.ID, workDate)
	if err != nil {
		return fmt.Errorf("failed to check recovery grants: %w", err)
	}
	if resting {
		return nil
	}

	res, err := c.windows.ResolveForEmployee(ctx, tn, emp, shifts, workDate, in.Timestamp)
	if err != nil {
		return err
	}
	if !res.OK || res.Suspended {
		return nil
	}

	_, _, err = c.svc.CreateFromSession(ctx, SessionInput{
		Tenant:        tn,
		Employee:      emp,
		WorkDate:      workDate,
		WindowEnd:     res.Window.End,
		WindowIsNight: res.Window.IsNight,
		OutTime:       out.Timestamp,
		SourceEventID: &out.ID,
	})
	return err
}
