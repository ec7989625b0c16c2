package shiftwindow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
)

// Resolution is the per-employee outcome for one day. Suspended is set when a
// schedule entry for the day was suspended by approved leave, which the
// detectors treat as "no session expected" even though an entry exists.
type Resolution struct {
	Window    Window
	OK        bool
	Suspended bool
}

type Service struct {
	entryRepo schedule.EntryRepository
	shiftRepo schedule.ShiftRepository
}

func NewService(entryRepo schedule.EntryRepository, shiftRepo schedule.ShiftRepository) *Service {
	return &Service{
		entryRepo: entryRepo,
		shiftRepo: shiftRepo,
	}
}

// ShiftMap loads every shift of a tenant keyed by ID. Jobs call it once per
// tenant sweep and pass the map to each ResolveForEmployee call.
func (s *Service) ShiftMap(ctx context.Context, tenantID string) (map[string]schedule.Shift, error) {
	shifts, err := s.shiftRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant shifts: %w", err)
	}

	m := make(map[string]schedule.Shift, len(shifts))
	for _, sh := range shifts {
		m[sh.ID] = sh
	}
	return m, nil
}

// ResolveForEmployee resolves the work window governing one employee on one
// calendar day, applying the schedule / default shift / tenant default
// fallback chain.
func (s *Service) ResolveForEmployee(
	ctx context.Context,
	tn tenant.Tenant,
	emp employee.Employee,
	shifts map[string]schedule.Shift,
	date time.Time,
	anchor time.Time,
) (Resolution, error) {
	entries, err := s.entryRepo.ListByEmployeeAndDate(ctx, tn.ID, emp.ID, date)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to load schedule entries: %w", err)
	}

	suspended := false
	for _, e := range entries {
		if e.Status == schedule.EntrySuspendedByLeave {
			suspended = true
			break
		}
	}

	var defaultShift *schedule.Shift
	if emp.DefaultShiftID != nil {
		if sh, ok := shifts[*emp.DefaultShiftID]; ok {
			defaultShift = &sh
		} else {
			sh, err := s.shiftRepo.GetByID(ctx, *emp.DefaultShiftID, tn.ID)
			if err != nil && !errors.Is(err, schedule.ErrShiftNotFound) {
				return Resolution{}, fmt.Errorf("failed to load default shift: %w", err)
			}
			if err == nil {
				defaultShift = &sh
			}
		}
	}

	w, ok := Resolve(Input{
		Date:             date,
		Loc:              tn.Location(),
		Entries:          entries,
		Shifts:           shifts,
		DefaultShift:     defaultShift,
		Anchor:           anchor,
		DefaultCloseTime: tn.Settings.DefaultCloseTime,
	})

	return Resolution{Window: w, OK: ok, Suspended: suspended}, nil
}
