package punch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	otsvc "github.com/assyin/pointaflex-26-sub002/internal/service/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/service/shiftwindow"
)

// openSessionLookback bounds how far back an OUT searches for its IN. A
// session longer than this is treated as abandoned and left to auto-close.
const openSessionLookback = 24 * time.Hour

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	tx           Transactor
	eventRepo    attendance.EventRepository
	tenantRepo   tenant.Repository
	employeeRepo employee.Repository
	windows      *shiftwindow.Service
	overtimeSvc  *otsvc.Service
	logger       *slog.Logger

	now func() time.Time
}

func NewService(
	tx Transactor,
	eventRepo attendance.EventRepository,
	tenantRepo tenant.Repository,
	employeeRepo employee.Repository,
	windows *shiftwindow.Service,
	overtimeSvc *otsvc.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		tx:           tx,
		eventRepo:    eventRepo,
		tenantRepo:   tenantRepo,
		employeeRepo: employeeRepo,
		windows:      windows,
		overtimeSvc:  overtimeSvc,
		logger:       logger,
		now:          time.Now,
	}
}

// PunchIn records an IN event. Lateness against the resolved shift window is
// computed and flagged immediately; notification of it belongs to the
// detection sweep, which owns the dedup log.
func (s *Service) PunchIn(ctx context.Context, tenantID string, req attendance.PunchInRequest) (attendance.Event, error) {
	if err := req.Validate(); err != nil {
		return attendance.Event{}, err
	}

	tn, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return attendance.Event{}, err
	}

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, tenantID)
	if err != nil {
		return attendance.Event{}, err
	}

	ts := req.At(s.now()).UTC()

	open, err := s.eventRepo.GetOpenIn(ctx, tenantID, emp.ID, ts, openSessionLookback)
	if err != nil {
		return attendance.Event{}, fmt.Errorf("failed to check open session: %w", err)
	}
	if open != nil {
		return attendance.Event{}, attendance.ErrAlreadyPunchedIn
	}

	event := attendance.Event{
		TenantID:   tenantID,
		EmployeeID: emp.ID,
		Timestamp:  ts,
		Kind:       attendance.PunchIn,
		Method:     req.EffectiveMethod(),
	}

	if res, err := s.resolveWindow(ctx, tn, emp, ts); err != nil {
		return attendance.Event{}, err
	} else if res.OK && !res.Window.Start.IsZero() {
		tolerance := time.Duration(tn.Settings.LateToleranceMinutes) * time.Minute
		if ts.After(res.Window.Start.Add(tolerance)) {
			// Lateness counts from the shift start, not from the end of
			// the tolerance. Below the notify threshold it is recorded
			// without an anomaly flag.
			late := int(ts.Sub(res.Window.Start).Minutes())
			event.LateMinutes = &late
			if late > tn.Settings.LateNotifyThresholdMinutes {
				kind := attendance.AnomalyLate
				note := fmt.Sprintf("arrived %d minutes after shift start", late)
				event.HasAnomaly = true
				event.AnomalyKind = &kind
				event.AnomalyNote = &note
			}
		}
	}

	created, err := s.eventRepo.Create(ctx, event)
	if err != nil {
		return attendance.Event{}, fmt.Errorf("failed to create IN event: %w", err)
	}

	s.logger.Info("punch in",
		slog.String("tenant_id", tenantID),
		slog.String("employee_id", emp.ID),
		slog.Time("timestamp", ts),
		slog.Bool("late", created.HasAnomaly),
	)

	return created, nil
}

// PunchOut closes the open session. The overtime entry for the session, if
// any, is created in the same transaction as the OUT event so a crash cannot
// leave an OUT whose overtime silently vanished.
func (s *Service) PunchOut(ctx context.Context, tenantID string, req attendance.PunchOutRequest) (attendance.Event, error) {
	if err := req.Validate(); err != nil {
		return attendance.Event{}, err
	}

	tn, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return attendance.Event{}, err
	}

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, tenantID)
	if err != nil {
		return attendance.Event{}, err
	}

	ts := req.At(s.now()).UTC()

	in, err := s.eventRepo.GetOpenIn(ctx, tenantID, emp.ID, ts, openSessionLookback)
	if err != nil {
		return attendance.Event{}, fmt.Errorf("failed to find open session: %w", err)
	}
	if in == nil {
		return attendance.Event{}, attendance.ErrNotPunchedIn
	}

	res, err := s.resolveWindow(ctx, tn, emp, in.Timestamp)
	if err != nil {
		return attendance.Event{}, err
	}

	event := attendance.Event{
		TenantID:      tenantID,
		EmployeeID:    emp.ID,
		Timestamp:     ts,
		Kind:          attendance.PunchOut,
		Method:        req.EffectiveMethod(),
		SourceEventID: &in.ID,
	}

	var overtimeMinutes int
	if res.OK && ts.After(res.Window.End) {
		overtimeMinutes = int(ts.Sub(res.Window.End).Minutes())
		event.OvertimeMinutes = &overtimeMinutes
	}

	var created attendance.Event
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		created, err = s.eventRepo.Create(txCtx, event)
		if err != nil {
			return fmt.Errorf("failed to create OUT event: %w", err)
		}

		if overtimeMinutes < tn.Settings.MinOvertimeMinutes || overtimeMinutes <= 0 {
			return nil
		}

		loc := tn.Location()
		inLocal := in.Timestamp.In(loc)
		workDate := time.Date(inLocal.Year(), inLocal.Month(), inLocal.Day(), 0, 0, 0, 0, time.UTC)

		_, _, err = s.overtimeSvc.CreateFromSession(txCtx, otsvc.SessionInput{
			Tenant:        tn,
			Employee:      emp,
			WorkDate:      workDate,
			WindowEnd:     res.Window.End,
			WindowIsNight: res.Window.IsNight,
			OutTime:       ts,
			SourceEventID: &created.ID,
		})
		return err
	})
	if err != nil {
		return attendance.Event{}, err
	}

	s.logger.Info("punch out",
		slog.String("tenant_id", tenantID),
		slog.String("employee_id", emp.ID),
		slog.Time("timestamp", ts),
		slog.Int("overtime_minutes", overtimeMinutes),
	)

	return created, nil
}

// CorrectAnomaly manually clears an anomaly flag, keeping the original kind
// in the note trail.
func (s *Service) CorrectAnomaly(ctx context.Context, tenantID, eventID string, req attendance.CorrectAnomalyRequest) (attendance.Event, error) {
	if err := req.Validate(); err != nil {
		return attendance.Event{}, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID, tenantID)
	if err != nil {
		return attendance.Event{}, err
	}

	if !event.HasAnomaly {
		return attendance.Event{}, attendance.ErrEventNotAnomalous
	}

	note := req.Note
	if event.AnomalyKind != nil {
		note = fmt.Sprintf("corrected from %s: %s", *event.AnomalyKind, req.Note)
	}

	event.HasAnomaly = false
	event.AnomalyKind = nil
	event.AnomalyNote = &note

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return attendance.Event{}, err
	}

	s.logger.Info("anomaly corrected",
		slog.String("tenant_id", tenantID),
		slog.String("event_id", eventID),
	)

	return event, nil
}

func (s *Service) resolveWindow(ctx context.Context, tn tenant.Tenant, emp employee.Employee, anchor time.Time) (shiftwindow.Resolution, error) {
	shifts, err := s.windows.ShiftMap(ctx, tn.ID)
	if err != nil {
		return shiftwindow.Resolution{}, err
	}

	local := anchor.In(tn.Location())
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	return s.windows.ResolveForEmployee(ctx, tn, emp, shifts, date, anchor)
}
