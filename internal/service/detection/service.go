package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/leave"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/notification"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/service/shiftwindow"
)

// Service is the anomaly detector. It is stateless: every sweep re-derives
// anomalies from the punch ledger and the resolved windows, and the
// notification log's conditional insert is the only thing preventing
// duplicate alerts across repeated runs.
type Service struct {
	eventRepo    attendance.EventRepository
	employeeRepo employee.Repository
	windows      *shiftwindow.Service
	leaveRepo    leave.Repository
	recoveryRepo recovery.Repository
	logRepo      notification.LogRepository
	dispatcher   notification.Dispatcher
	logger       *slog.Logger

	now func() time.Time
}

func NewService(
	eventRepo attendance.EventRepository,
	employeeRepo employee.Repository,
	windows *shiftwindow.Service,
	leaveRepo leave.Repository,
	recoveryRepo recovery.Repository,
	logRepo notification.LogRepository,
	dispatcher notification.Dispatcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		eventRepo:    eventRepo,
		employeeRepo: employeeRepo,
		windows:      windows,
		leaveRepo:    leaveRepo,
		recoveryRepo: recoveryRepo,
		logRepo:      logRepo,
		dispatcher:   dispatcher,
		logger:       logger,
		now:          time.Now,
	}
}

// RunSweep evaluates every active employee of one tenant for today and
// yesterday (night shifts and post-midnight windows belong to yesterday's
// calendar date). Per-employee failures are logged and skipped; only
// tenant-level failures abort the sweep.
func (s *Service) RunSweep(ctx context.Context, tn tenant.Tenant) error {
	employees, err := s.employeeRepo.ListActiveByTenant(ctx, tn.ID)
	if err != nil {
		return fmt.Errorf("failed to list employees: %w", err)
	}

	shifts, err := s.windows.ShiftMap(ctx, tn.ID)
	if err != nil {
		return err
	}

	now := s.now()
	loc := tn.Location()
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	for _, emp := range employees {
		for _, date := range []time.Time{yesterday, today} {
			if err := s.checkSession(ctx, tn, emp, shifts, date, now); err != nil {
				s.logger.Error("detection failed for employee",
					slog.String("tenant_id", tn.ID),
					slog.String("employee_id", emp.ID),
					slog.String("date", date.Format("2006-01-02")),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if err := s.checkPartialAbsences(ctx, tn, yesterday, now); err != nil {
		s.logger.Error("partial absence sweep failed",
			slog.String("tenant_id", tn.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

func (s *Service) checkSession(
	ctx context.Context,
	tn tenant.Tenant,
	emp employee.Employee,
	shifts map[string]schedule.Shift,
	date time.Time,
	now time.Time,
) error {
	res, err := s.windows.ResolveForEmployee(ctx, tn, emp, shifts, date, time.Time{})
	if err != nil {
		return err
	}
	if !res.OK || res.Suspended {
		return nil
	}

	onLeave, err := s.leaveRepo.ExistsApprovedLeave(ctx, tn.ID, emp.ID, date)
	if err != nil {
		return fmt.Errorf("failed to check leave: %w", err)
	}
	if onLeave {
		return nil
	}

	resting, err := s.recoveryRepo.ExistsActiveGrantCovering(ctx, tn.ID, emp.ID, date)
	if err != nil {
		return fmt.Errorf("failed to check recovery grants: %w", err)
	}
	if resting {
		return nil
	}

	win := res.Window

	if !win.Start.IsZero() {
		if err := s.checkMissingIn(ctx, tn, emp, date, win, now); err != nil {
			return err
		}
		if err := s.checkLate(ctx, tn, emp, date, win, now); err != nil {
			return err
		}
		if err := s.checkAbsence(ctx, tn, emp, date, win, now); err != nil {
			return err
		}
	}

	return s.checkMissingOut(ctx, tn, emp, date, win, now)
}

// checkMissingIn fires once now is past shiftStart + detectionWindow and no
// real IN exists since shiftStart - tolerance.
func (s *Service) checkMissingIn(ctx context.Context, tn tenant.Tenant, emp employee.Employee, date time.Time, win shiftwindow.Window, now time.Time) error {
	set := tn.Settings
	window := time.Duration(set.DetectionWindowMinutes) * time.Minute
	deadline := win.Start.Add(window)
	if now.Before(deadline) {
		return nil
	}

	tolStart := win.Start.Add(-time.Duration(set.LateToleranceMinutes) * time.Minute)
	until := now
	// A very late IN still belongs to this session. The search stops at the
	// same 24h horizon used to pair INs with OUTs, so the next day's IN
	// cannot satisfy yesterday's shift.
	if horizon := win.Start.Add(24 * time.Hour); horizon.Before(until) {
		until = horizon
	}
	punched, err := s.eventRepo.ExistsKindBetween(ctx, tn.ID, emp.ID, attendance.PunchIn, tolStart, until)
	if err != nil {
		return fmt.Errorf("failed to look for IN: %w", err)
	}
	if punched {
		return nil
	}

	slot := "shift_start:" + win.Start.In(tn.Location()).Format("15:04")
	return s.notifyEscalatable(ctx, tn, emp, date, slot, attendance.AnomalyMissingIn,
		escalationLevel(now, deadline, window), map[string]string{
			"expected_start": win.Start.In(tn.Location()).Format("15:04"),
		})
}

// checkLate re-derives lateness from the ledger so punches recorded outside
// the real-time path still get flagged and notified.
func (s *Service) checkLate(ctx context.Context, tn tenant.Tenant, emp employee.Employee, date time.Time, win shiftwindow.Window, now time.Time) error {
	set := tn.Settings
	tolerance := time.Duration(set.LateToleranceMinutes) * time.Minute
	earliest := win.Start.Add(-tolerance)
	if !now.After(earliest) {
		return nil
	}

	before := now
	if win.End.Before(before) {
		before = win.End
	}
	in, err := s.eventRepo.FindMatchingIn(ctx, tn.ID, emp.ID, before, before.Sub(earliest))
	if err != nil {
		return fmt.Errorf("failed to look for IN: %w", err)
	}
	if in == nil || !in.Timestamp.After(win.Start.Add(tolerance)) {
		return nil
	}

	late := int(in.Timestamp.Sub(win.Start).Minutes())
	if late <= set.LateNotifyThresholdMinutes {
		return nil
	}

	if !in.HasAnomaly {
		kind := attendance.AnomalyLate
		note := fmt.Sprintf("arrived %d minutes after shift start", late)
		in.HasAnomaly = true
		in.AnomalyKind = &kind
		in.AnomalyNote = &note
		in.LateMinutes = &late
		if err := s.eventRepo.Update(ctx, *in); err != nil {
			return fmt.Errorf("failed to flag late IN: %w", err)
		}
	}

	slot := "shift_start:" + win.Start.In(tn.Location()).Format("15:04")
	return s.notify(ctx, tn, emp, date, slot, attendance.AnomalyLate, 1, map[string]string{
		"late_minutes": fmt.Sprintf("%d", late),
	})
}

// checkMissingOut fires once the detection window past the shift end has
// elapsed and the session's IN is still open. For night shifts the deadline
// is floored at noon of the day the shift ends on, so legitimate morning
// overtime is never flagged mid-run.
func (s *Service) checkMissingOut(ctx context.Context, tn tenant.Tenant, emp employee.Employee, date time.Time, win shiftwindow.Window, now time.Time) error {
	set := tn.Settings
	window := time.Duration(set.DetectionWindowMinutes) * time.Minute
	deadline := win.End.Add(window)
	if win.IsNight {
		endLocal := win.End.In(tn.Location())
		noon := time.Date(endLocal.Year(), endLocal.Month(), endLocal.Day(), 12, 0, 0, 0, tn.Location())
		if deadline.Before(noon) {
			deadline = noon
		}
	}
	if now.Before(deadline) {
		return nil
	}

	lookback := 24 * time.Hour
	if !win.Start.IsZero() && now.Sub(win.Start) > lookback {
		lookback = now.Sub(win.Start) + time.Hour
	}

	in, err := s.eventRepo.GetOpenIn(ctx, tn.ID, emp.ID, now, lookback)
	if err != nil {
		return fmt.Errorf("failed to look for open session: %w", err)
	}
	if in == nil || !in.Timestamp.Before(win.End) {
		return nil
	}

	if !in.HasAnomaly {
		kind := attendance.AnomalyMissingOut
		note := fmt.Sprintf("no OUT recorded before %s", deadline.In(tn.Location()).Format("2006-01-02 15:04"))
		in.HasAnomaly = true
		in.AnomalyKind = &kind
		in.AnomalyNote = &note
		if err := s.eventRepo.Update(ctx, *in); err != nil {
			return fmt.Errorf("failed to flag open IN: %w", err)
		}
	}

	slot := "shift_end:" + win.End.In(tn.Location()).Format("15:04")
	return s.notifyEscalatable(ctx, tn, emp, date, slot, attendance.AnomalyMissingOut,
		escalationLevel(now, deadline, window), map[string]string{
			"expected_end": win.End.In(tn.Location()).Format("15:04"),
		})
}

// checkAbsence creates the synthetic ABSENCE record for a fully empty day.
// A real punch near the expected start, or anywhere in the day, vetoes it.
func (s *Service) checkAbsence(ctx context.Context, tn tenant.Tenant, emp employee.Employee, date time.Time, win shiftwindow.Window, now time.Time) error {
	set := tn.Settings
	evalAt := win.End.Add(time.Duration(set.AbsenceBufferMinutes) * time.Minute)
	if now.Before(evalAt) {
		return nil
	}

	loc := tn.Location()
	startTol := time.Duration(set.AbsenceStartToleranceMinutes) * time.Minute
	nearStart, err := s.eventRepo.ExistsRealPunchBetween(ctx, tn.ID, emp.ID, win.Start.Add(-startTol), win.Start.Add(startTol))
	if err != nil {
		return fmt.Errorf("failed to check punches near start: %w", err)
	}
	if nearStart {
		return nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	anyPunch, err := s.eventRepo.ExistsRealPunchBetween(ctx, tn.ID, emp.ID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to check punches in day: %w", err)
	}
	if anyPunch {
		return nil
	}

	exists, err := s.eventRepo.ExistsGeneratedBetween(ctx, tn.ID, emp.ID, attendance.GeneratedByAbsence, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to check generated events: %w", err)
	}
	if !exists {
		kind := attendance.AnomalyAbsence
		generatedBy := attendance.GeneratedByAbsence
		note := fmt.Sprintf("no punch recorded for %s", date.Format("2006-01-02"))
		if _, err := s.eventRepo.Create(ctx, attendance.Event{
			TenantID:    tn.ID,
			EmployeeID:  emp.ID,
			Timestamp:   win.Start,
			Kind:        attendance.PunchIn,
			Method:      "generated",
			HasAnomaly:  true,
			AnomalyKind: &kind,
			AnomalyNote: &note,
			IsGenerated: true,
			GeneratedBy: &generatedBy,
		}); err != nil {
			return fmt.Errorf("failed to create absence event: %w", err)
		}
	}

	return s.notify(ctx, tn, emp, date, "absence", attendance.AnomalyAbsence, 1, map[string]string{
		"date": date.Format("2006-01-02"),
	})
}

// checkPartialAbsences covers the OUT-without-IN case across the tenant: an
// OUT whose preceding lookback window contains no real IN.
func (s *Service) checkPartialAbsences(ctx context.Context, tn tenant.Tenant, since time.Time, now time.Time) error {
	set := tn.Settings
	lookback := time.Duration(set.PartialLookbackHours) * time.Hour
	if lookback <= 0 {
		lookback = 4 * time.Hour
	}

	loc := tn.Location()
	from := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, loc)

	outs, err := s.eventRepo.ListKindBetween(ctx, tn.ID, attendance.PunchOut, from, now)
	if err != nil {
		return fmt.Errorf("failed to list OUT events: %w", err)
	}

	for _, out := range outs {
		in, err := s.eventRepo.FindMatchingIn(ctx, tn.ID, out.EmployeeID, out.Timestamp, lookback)
		if err != nil {
			return fmt.Errorf("failed to look for preceding IN: %w", err)
		}
		if in != nil {
			continue
		}

		if !out.HasAnomaly {
			kind := attendance.AnomalyAbsencePartial
			note := fmt.Sprintf("OUT without an IN in the preceding %s", lookback)
			out.HasAnomaly = true
			out.AnomalyKind = &kind
			out.AnomalyNote = &note
			if err := s.eventRepo.Update(ctx, out); err != nil {
				return fmt.Errorf("failed to flag orphan OUT: %w", err)
			}
		}

		outLocal := out.Timestamp.In(loc)
		date := time.Date(outLocal.Year(), outLocal.Month(), outLocal.Day(), 0, 0, 0, 0, time.UTC)
		slot := "out:" + outLocal.Format("15:04")

		emp := employee.Employee{ID: out.EmployeeID}
		if err := s.notify(ctx, tn, emp, date, slot, attendance.AnomalyAbsencePartial, 1, map[string]string{
			"out_time": outLocal.Format("15:04"),
		}); err != nil {
			return err
		}
	}

	return nil
}

// notifyEscalatable writes the level-1 row, then a separate escalation row
// once the second window has elapsed. Each row dispatches at most once.
func (s *Service) notifyEscalatable(ctx context.Context, tn tenant.Tenant, emp employee.Employee, date time.Time, slot string, kind attendance.AnomalyKind, level int, msgCtx map[string]string) error {
	if level < 1 {
		return nil
	}
	if err := s.notify(ctx, tn, emp, date, slot, kind, 1, msgCtx); err != nil {
		return err
	}
	if level >= 2 {
		return s.notify(ctx, tn, emp, date, slot+":esc", kind, 2, msgCtx)
	}
	return nil
}

// notify is the atomic log-then-dispatch step: the conditional insert decides
// whether this (employee, day, slot, kind) was already alerted, and only a
// created row is dispatched.
func (s *Service) notify(ctx context.Context, tn tenant.Tenant, emp employee.Employee, date time.Time, slot string, kind attendance.AnomalyKind, level int, msgCtx map[string]string) error {
	created, err := s.logRepo.InsertIfAbsent(ctx, notification.Log{
		TenantID:        tn.ID,
		EmployeeID:      emp.ID,
		SessionDate:     date,
		SlotKey:         slot,
		Kind:            kind,
		EscalationLevel: level,
		SentAt:          s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	if !created {
		return nil
	}

	s.dispatcher.Dispatch(ctx, notification.Request{
		TenantID:        tn.ID,
		EmployeeID:      emp.ID,
		Kind:            kind,
		EscalationLevel: level,
		Context:         msgCtx,
	})

	s.logger.Info("anomaly notified",
		slog.String("tenant_id", tn.ID),
		slog.String("employee_id", emp.ID),
		slog.String("kind", string(kind)),
		slog.String("slot", slot),
		slog.Int("level", level),
	)

	return nil
}

func escalationLevel(now, deadline time.Time, window time.Duration) int {
	if now.Before(deadline) {
		return 0
	}
	if window > 0 && !now.Before(deadline.Add(window)) {
		return 2
	}
	return 1
}
