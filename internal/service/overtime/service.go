package overtime

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/shopspring/decimal"
)

type Service struct {
	overtimeRepo overtime.Repository
	holidayRepo  tenant.HolidayRepository
	logger       *slog.Logger
}

func NewService(overtimeRepo overtime.Repository, holidayRepo tenant.HolidayRepository, logger *slog.Logger) *Service {
	return &Service{
		overtimeRepo: overtimeRepo,
		holidayRepo:  holidayRepo,
		logger:       logger,
	}
}

// SessionInput describes one finished work session. The real-time punch path
// and the consolidation sweep both feed sessions through CreateFromSession so
// caps, classification and auto-approval are computed in exactly one place.
type SessionInput struct {
	Tenant        tenant.Tenant
	Employee      employee.Employee
	WorkDate      time.Time // IN punch's local calendar date
	WindowEnd     time.Time
	WindowIsNight bool
	OutTime       time.Time
	SourceEventID *string
}

// CreateFromSession derives an overtime entry from a finished session.
// Returns (nil, false, nil) when the session produces no entry: ineligible
// employee, below the minimum, capped to zero, or an entry already exists for
// the work date.
func (s *Service) CreateFromSession(ctx context.Context, in SessionInput) (*overtime.Entry, bool, error) {
	if !in.Employee.OvertimeEligible {
		return nil, false, nil
	}

	set := in.Tenant.Settings
	minutes := int(in.OutTime.Sub(in.WindowEnd).Minutes())
	if minutes < set.MinOvertimeMinutes || minutes <= 0 {
		return nil, false, nil
	}

	hours := decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)

	hours, err := s.applyCaps(ctx, in, hours)
	if err != nil {
		return nil, false, err
	}
	if !hours.IsPositive() {
		return nil, false, nil
	}

	otType, err := s.classify(ctx, in)
	if err != nil {
		return nil, false, err
	}

	entry := overtime.Entry{
		TenantID:      in.Tenant.ID,
		EmployeeID:    in.Employee.ID,
		Date:          in.WorkDate,
		Hours:         hours,
		Status:        overtime.StatusPending,
		Type:          otType,
		SourceEventID: in.SourceEventID,
	}

	if set.AutoApproveMaxHours.IsPositive() && hours.LessThanOrEqual(set.AutoApproveMaxHours) {
		approved := hours
		entry.Status = overtime.StatusApproved
		entry.ApprovedHours = &approved
	}

	created, ok, err := s.overtimeRepo.CreateIfAbsent(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create overtime entry: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	s.logger.Info("overtime entry created",
		slog.String("tenant_id", in.Tenant.ID),
		slog.String("employee_id", in.Employee.ID),
		slog.String("work_date", in.WorkDate.Format("2006-01-02")),
		slog.String("hours", created.Hours.String()),
		slog.String("type", string(created.Type)),
		slog.String("status", string(created.Status)),
	)

	return &created, true, nil
}

// applyCaps clamps hours to what remains under the weekly and monthly caps.
// A zero cap disables that cap. The clamped shortfall is logged, not stored.
func (s *Service) applyCaps(ctx context.Context, in SessionInput, hours decimal.Decimal) (decimal.Decimal, error) {
	loc := in.Tenant.Location()
	local := in.WorkDate.In(loc)
	set := in.Tenant.Settings

	type capWindow struct {
		name     string
		cap      decimal.Decimal
		from, to time.Time
	}

	weekFrom, weekTo := isoWeekBounds(local)
	monthFrom := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	monthTo := monthFrom.AddDate(0, 1, -1)

	windows := []capWindow{
		{"weekly", set.WeeklyOvertimeCapHours, weekFrom, weekTo},
		{"monthly", set.MonthlyOvertimeCapHours, monthFrom, monthTo},
	}

	for _, w := range windows {
		if !w.cap.IsPositive() {
			continue
		}

		used, err := s.overtimeRepo.SumHoursBetween(ctx, in.Tenant.ID, in.Employee.ID, w.from, w.to)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to sum overtime for %s cap: %w", w.name, err)
		}

		remaining := w.cap.Sub(used)
		if hours.GreaterThan(remaining) {
			s.logger.Warn("overtime hours capped",
				slog.String("tenant_id", in.Tenant.ID),
				slog.String("employee_id", in.Employee.ID),
				slog.String("cap", w.name),
				slog.String("requested", hours.String()),
				slog.String("remaining", remaining.String()),
			)
			hours = remaining
		}
	}

	return hours, nil
}

func (s *Service) classify(ctx context.Context, in SessionInput) (overtime.Type, error) {
	holiday, err := s.holidayRepo.IsHoliday(ctx, in.Tenant.ID, in.WorkDate)
	if err != nil {
		return "", fmt.Errorf("failed to check tenant holiday: %w", err)
	}
	if holiday {
		return overtime.TypeHoliday, nil
	}

	set := in.Tenant.Settings
	if in.WindowIsNight || inNightWindow(in.OutTime.In(in.Tenant.Location()), set.NightWindowStart, set.NightWindowEnd) {
		return overtime.TypeNight, nil
	}

	return overtime.TypeStandard, nil
}

// Approve implements the PENDING -> APPROVED transition. A nil approvedHours
// approves the full recorded amount.
func (s *Service) Approve(ctx context.Context, tenantID, entryID string, approvedHours *decimal.Decimal, actorCanApprove bool) (overtime.Entry, error) {
	if !actorCanApprove {
		return overtime.Entry{}, overtime.ErrApprovalNotAllowed
	}

	entry, err := s.overtimeRepo.GetByID(ctx, entryID, tenantID)
	if err != nil {
		return overtime.Entry{}, err
	}

	if entry.Status != overtime.StatusPending {
		return overtime.Entry{}, overtime.ErrAlreadyProcessed
	}

	hours := entry.Hours
	if approvedHours != nil {
		if approvedHours.GreaterThan(entry.Hours) || approvedHours.IsNegative() {
			return overtime.Entry{}, overtime.ErrApprovedOverHours
		}
		hours = *approvedHours
	}

	entry.Status = overtime.StatusApproved
	entry.ApprovedHours = &hours

	if err := s.overtimeRepo.Update(ctx, entry); err != nil {
		return overtime.Entry{}, err
	}

	s.logger.Info("overtime entry approved",
		slog.String("tenant_id", tenantID),
		slog.String("overtime_id", entryID),
		slog.String("approved_hours", hours.String()),
	)

	return entry, nil
}

// Reject implements the PENDING -> REJECTED transition.
func (s *Service) Reject(ctx context.Context, tenantID, entryID string, reason *string, actorCanApprove bool) (overtime.Entry, error) {
	if !actorCanApprove {
		return overtime.Entry{}, overtime.ErrApprovalNotAllowed
	}

	entry, err := s.overtimeRepo.GetByID(ctx, entryID, tenantID)
	if err != nil {
		return overtime.Entry{}, err
	}

	if entry.Status != overtime.StatusPending {
		return overtime.Entry{}, overtime.ErrAlreadyProcessed
	}

	entry.Status = overtime.StatusRejected
	if reason != nil {
		entry.Note = reason
	}

	if err := s.overtimeRepo.Update(ctx, entry); err != nil {
		return overtime.Entry{}, err
	}

	s.logger.Info("overtime entry rejected",
		slog.String("tenant_id", tenantID),
		slog.String("overtime_id", entryID),
	)

	return entry, nil
}

// isoWeekBounds returns the Monday and Sunday of d's week, at midnight in
// d's location.
func isoWeekBounds(d time.Time) (time.Time, time.Time) {
	offset := (int(d.Weekday()) + 6) % 7
	monday := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// inNightWindow reports whether t's wall-clock time falls in [start, end),
// where the window may cross midnight ("21:00" to "06:00").
func inNightWindow(t time.Time, start, end string) bool {
	startMin, ok := clockMinutes(start)
	if !ok {
		return false
	}
	endMin, ok := clockMinutes(end)
	if !ok {
		return false
	}

	cur := t.Hour()*60 + t.Minute()
	if startMin <= endMin {
		return cur >= startMin && cur < endMin
	}
	return cur >= startMin || cur < endMin
}

func clockMinutes(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
