package autoclose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/service/shiftwindow"
)

// candidateLookback bounds how far back the engine looks for open sessions.
const candidateLookback = 48 * time.Hour

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service closes abandoned sessions after day rollover. Each orphan IN gets a
// synthetic OUT derived from the resolved shift end, adjusted by approved
// overtime or the configured buffer. Closing removes the session from the
// open-IN queries, which is what makes re-runs no-ops.
type Service struct {
	tx           Transactor
	eventRepo    attendance.EventRepository
	employeeRepo employee.Repository
	overtimeRepo overtime.Repository
	windows      *shiftwindow.Service
	logger       *slog.Logger

	now func() time.Time
}

func NewService(
	tx Transactor,
	eventRepo attendance.EventRepository,
	employeeRepo employee.Repository,
	overtimeRepo overtime.Repository,
	windows *shiftwindow.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		tx:           tx,
		eventRepo:    eventRepo,
		employeeRepo: employeeRepo,
		overtimeRepo: overtimeRepo,
		windows:      windows,
		logger:       logger,
		now:          time.Now,
	}
}

// Run processes one tenant: every session flagged MISSING_OUT plus any
// still-open IN whose detection window has elapsed. Per-session failures are
// logged and skipped.
func (s *Service) Run(ctx context.Context, tn tenant.Tenant) error {
	now := s.now()

	flagged, err := s.eventRepo.ListFlaggedIns(ctx, tn.ID, attendance.AnomalyMissingOut, now.Add(-candidateLookback))
	if err != nil {
		return fmt.Errorf("failed to list flagged sessions: %w", err)
	}

	open, err := s.eventRepo.ListOpenIns(ctx, tn.ID, now.Add(-candidateLookback))
	if err != nil {
		return fmt.Errorf("failed to list open sessions: %w", err)
	}

	shifts, err := s.windows.ShiftMap(ctx, tn.ID)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, in := range append(flagged, open...) {
		if seen[in.ID] {
			continue
		}
		seen[in.ID] = true

		if err := s.closeSession(ctx, tn, shifts, in, now); err != nil {
			s.logger.Error("auto-close failed for session",
				slog.String("tenant_id", tn.ID),
				slog.String("employee_id", in.EmployeeID),
				slog.String("event_id", in.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

func (s *Service) closeSession(ctx context.Context, tn tenant.Tenant, shifts map[string]schedule.Shift, in attendance.Event, now time.Time) error {
	// An OUT may have appeared since the session was flagged.
	out, err := s.eventRepo.FindMatchingOut(ctx, tn.ID, in.EmployeeID, in.Timestamp, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to re-verify OUT: %w", err)
	}
	if out != nil {
		if in.HasAnomaly {
			note := fmt.Sprintf("missing OUT cleared: OUT punched at %s", out.Timestamp.In(tn.Location()).Format("2006-01-02 15:04"))
			in.HasAnomaly = false
			in.AnomalyKind = nil
			in.AnomalyNote = &note
			if err := s.eventRepo.Update(ctx, in); err != nil {
				return fmt.Errorf("failed to clear anomaly: %w", err)
			}
		}
		return nil
	}

	emp, err := s.employeeRepo.GetByID(ctx, in.EmployeeID, tn.ID)
	if err != nil {
		return err
	}

	loc := tn.Location()
	inLocal := in.Timestamp.In(loc)
	date := time.Date(inLocal.Year(), inLocal.Month(), inLocal.Day(), 0, 0, 0, 0, time.UTC)

	res, err := s.windows.ResolveForEmployee(ctx, tn, emp, shifts, date, in.Timestamp)
	if err != nil {
		return err
	}
	if !res.OK {
		return attendance.ErrNoWindow
	}
	win := res.Window

	if now.Before(sessionDeadline(tn, win)) {
		// Still inside the detection window: possibly legitimate overtime.
		return nil
	}

	closeAt := win.End
	kind := attendance.AnomalyAutoCorrection
	var note string

	entry, err := s.overtimeRepo.GetByEmployeeAndWorkDate(ctx, tn.ID, emp.ID, date)
	if err != nil {
		return fmt.Errorf("failed to load overtime entry: %w", err)
	}

	switch {
	case entry != nil && entry.Status == overtime.StatusApproved:
		extra := time.Duration(entry.EffectiveHours().InexactFloat64() * float64(time.Hour))
		closeAt = win.End.Add(extra)
		note = fmt.Sprintf("auto-closed: shift end %s + approved overtime %sh",
			win.End.In(loc).Format("15:04"), entry.EffectiveHours().String())
	case entry != nil && entry.Status == overtime.StatusPending:
		// Unapproved overtime: close at the plain end and demand review.
		kind = attendance.AnomalyAutoClosedCheck
		note = fmt.Sprintf("auto-closed at shift end %s; pending overtime entry %s needs review",
			win.End.In(loc).Format("15:04"), entry.ID)
	case tn.Settings.AutoCloseOvertimeBufferMinutes > 0:
		closeAt = win.End.Add(time.Duration(tn.Settings.AutoCloseOvertimeBufferMinutes) * time.Minute)
		note = fmt.Sprintf("auto-closed: shift end %s + buffer %d min",
			win.End.In(loc).Format("15:04"), tn.Settings.AutoCloseOvertimeBufferMinutes)
	default:
		note = fmt.Sprintf("auto-closed at shift end %s", win.End.In(loc).Format("15:04"))
	}

	generatedBy := attendance.GeneratedByAutoClose
	synthetic := attendance.Event{
		TenantID:      tn.ID,
		EmployeeID:    emp.ID,
		Timestamp:     closeAt,
		Kind:          attendance.PunchOut,
		Method:        "generated",
		HasAnomaly:    true,
		AnomalyKind:   &kind,
		AnomalyNote:   &note,
		IsGenerated:   true,
		GeneratedBy:   &generatedBy,
		SourceEventID: &in.ID,
	}

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.eventRepo.Create(txCtx, synthetic); err != nil {
			return fmt.Errorf("failed to create synthetic OUT: %w", err)
		}

		in.HasAnomaly = true
		in.AnomalyKind = &kind
		in.AnomalyNote = &note
		if err := s.eventRepo.Update(txCtx, in); err != nil {
			return fmt.Errorf("failed to retag IN: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("session auto-closed",
		slog.String("tenant_id", tn.ID),
		slog.String("employee_id", emp.ID),
		slog.String("in_event_id", in.ID),
		slog.Time("closed_at", closeAt),
		slog.String("kind", string(kind)),
	)

	return nil
}

// sessionDeadline mirrors the detector's MISSING_OUT deadline: shift end plus
// the detection window, floored at next-day noon for night shifts.
func sessionDeadline(tn tenant.Tenant, win shiftwindow.Window) time.Time {
	deadline := win.End.Add(time.Duration(tn.Settings.DetectionWindowMinutes) * time.Minute)
	if win.IsNight {
		endLocal := win.End.In(tn.Location())
		noon := time.Date(endLocal.Year(), endLocal.Month(), endLocal.Day(), 12, 0, 0, 0, tn.Location())
		if deadline.Before(noon) {
			deadline = noon
		}
	}
	return deadline
}
