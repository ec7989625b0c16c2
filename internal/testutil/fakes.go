// Package testutil provides in-memory repository implementations shared by
// service tests. They mirror the SQL semantics of the postgresql package
// closely enough to exercise the business rules without a database.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/notification"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/shopspring/decimal"
)

// Tx satisfies the Transactor interfaces of the service packages by running
// the unit directly, with no transactional semantics.
type Tx struct{}

func (Tx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ---------------------------------------------------------------------------
// tenants

type TenantStore struct {
	Tenants []tenant.Tenant
}

func (s *TenantStore) GetByID(_ context.Context, id string) (tenant.Tenant, error) {
	for _, t := range s.Tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return tenant.Tenant{}, tenant.ErrTenantNotFound
}

func (s *TenantStore) ListActive(_ context.Context) ([]tenant.Tenant, error) {
	var out []tenant.Tenant
	for _, t := range s.Tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

type HolidayStore struct {
	Days map[string]bool // "tenantID|2006-01-02"
}

func (s *HolidayStore) IsHoliday(_ context.Context, tenantID string, date time.Time) (bool, error) {
	return s.Days[tenantID+"|"+date.Format("2006-01-02")], nil
}

// ---------------------------------------------------------------------------
// employees

type EmployeeStore struct {
	Employees []employee.Employee
}

func (s *EmployeeStore) GetByID(_ context.Context, id string, tenantID string) (employee.Employee, error) {
	for _, e := range s.Employees {
		if e.ID == id && e.TenantID == tenantID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (s *EmployeeStore) ListActiveByTenant(_ context.Context, tenantID string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range s.Employees {
		if e.TenantID == tenantID && e.Status == employee.StatusActive {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// schedules

type ShiftStore struct {
	Shifts []schedule.Shift
}

func (s *ShiftStore) GetByID(_ context.Context, id string, tenantID string) (schedule.Shift, error) {
	for _, sh := range s.Shifts {
		if sh.ID == id && sh.TenantID == tenantID {
			return sh, nil
		}
	}
	return schedule.Shift{}, schedule.ErrShiftNotFound
}

func (s *ShiftStore) ListByTenant(_ context.Context, tenantID string) ([]schedule.Shift, error) {
	var out []schedule.Shift
	for _, sh := range s.Shifts {
		if sh.TenantID == tenantID {
			out = append(out, sh)
		}
	}
	return out, nil
}

type EntryStore struct {
	Entries []schedule.Entry
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func (s *EntryStore) ListByEmployeeAndDate(_ context.Context, tenantID, employeeID string, date time.Time) ([]schedule.Entry, error) {
	var out []schedule.Entry
	for _, e := range s.Entries {
		if e.TenantID == tenantID && e.EmployeeID == employeeID && sameDay(e.Date, date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EntryStore) ListByTenantAndDate(_ context.Context, tenantID string, date time.Time) ([]schedule.Entry, error) {
	var out []schedule.Entry
	for _, e := range s.Entries {
		if e.TenantID == tenantID && sameDay(e.Date, date) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// leave

type LeavePeriod struct {
	TenantID   string
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
}

type LeaveStore struct {
	Approved []LeavePeriod
}

func (s *LeaveStore) ExistsApprovedLeave(_ context.Context, tenantID, employeeID string, day time.Time) (bool, error) {
	d := day.Format("2006-01-02")
	for _, p := range s.Approved {
		if p.TenantID == tenantID && p.EmployeeID == employeeID &&
			p.StartDate.Format("2006-01-02") <= d && d <= p.EndDate.Format("2006-01-02") {
			return true, nil
		}
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// punch ledger

type EventStore struct {
	mu     sync.Mutex
	Events []attendance.Event
	seq    int
}

func (s *EventStore) Create(_ context.Context, event attendance.Event) (attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		s.seq++
		event.ID = fmt.Sprintf("ev-%d", s.seq)
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	s.Events = append(s.Events, event)
	return event, nil
}

func (s *EventStore) GetByID(_ context.Context, id string, tenantID string) (attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.Events {
		if e.ID == id && e.TenantID == tenantID {
			return e, nil
		}
	}
	return attendance.Event{}, attendance.ErrEventNotFound
}

func (s *EventStore) Update(_ context.Context, event attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.Events {
		if e.ID == event.ID && e.TenantID == event.TenantID {
			event.CreatedAt = e.CreatedAt
			event.UpdatedAt = time.Now()
			s.Events[i] = event
			return nil
		}
	}
	return attendance.ErrEventNotFound
}

// hasMatchingOut mirrors the SQL open-session condition: an OUT for the same
// employee strictly after the IN and within 24 hours of it.
func (s *EventStore) hasMatchingOut(in attendance.Event) bool {
	for _, e := range s.Events {
		if e.TenantID == in.TenantID && e.EmployeeID == in.EmployeeID &&
			e.Kind == attendance.PunchOut &&
			e.Timestamp.After(in.Timestamp) &&
			e.Timestamp.Sub(in.Timestamp) <= 24*time.Hour {
			return true
		}
	}
	return false
}

func (s *EventStore) GetOpenIn(_ context.Context, tenantID, employeeID string, asOf time.Time, lookback time.Duration) (*attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *attendance.Event
	for i := range s.Events {
		e := s.Events[i]
		if e.TenantID != tenantID || e.EmployeeID != employeeID {
			continue
		}
		if e.Kind != attendance.PunchIn || e.IsGenerated {
			continue
		}
		if e.Timestamp.After(asOf) || asOf.Sub(e.Timestamp) > lookback {
			continue
		}
		if s.hasMatchingOut(e) {
			continue
		}
		if best == nil || e.Timestamp.After(best.Timestamp) {
			b := e
			best = &b
		}
	}
	return best, nil
}

func (s *EventStore) ListOpenIns(_ context.Context, tenantID string, since time.Time) ([]attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []attendance.Event
	for _, e := range s.Events {
		if e.TenantID != tenantID || e.Kind != attendance.PunchIn || e.IsGenerated {
			continue
		}
		if e.Timestamp.Before(since) {
			continue
		}
		if s.hasMatchingOut(e) {
			continue
		}
		out = append(out, e)
	}
	sortByTimestamp(out)
	return out, nil
}

func (s *EventStore) ListFlaggedIns(_ context.Context, tenantID string, kind attendance.AnomalyKind, since time.Time) ([]attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []attendance.Event
	for _, e := range s.Events {
		if e.TenantID != tenantID || e.Kind != attendance.PunchIn || e.IsGenerated {
			continue
		}
		if !e.HasAnomaly || e.AnomalyKind == nil || *e.AnomalyKind != kind {
			continue
		}
		if e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
	}
	sortByTimestamp(out)
	return out, nil
}

func (s *EventStore) FindMatchingOut(_ context.Context, tenantID, employeeID string, after time.Time, within time.Duration) (*attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *attendance.Event
	for i := range s.Events {
		e := s.Events[i]
		if e.TenantID != tenantID || e.EmployeeID != employeeID || e.Kind != attendance.PunchOut {
			continue
		}
		if !e.Timestamp.After(after) || e.Timestamp.Sub(after) > within {
			continue
		}
		if best == nil || e.Timestamp.Before(best.Timestamp) {
			b := e
			best = &b
		}
	}
	return best, nil
}

func (s *EventStore) FindMatchingIn(_ context.Context, tenantID, employeeID string, before time.Time, within time.Duration) (*attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *attendance.Event
	for i := range s.Events {
		e := s.Events[i]
		if e.TenantID != tenantID || e.EmployeeID != employeeID {
			continue
		}
		if e.Kind != attendance.PunchIn || e.IsGenerated {
			continue
		}
		if !e.Timestamp.Before(before) || before.Sub(e.Timestamp) > within {
			continue
		}
		if best == nil || e.Timestamp.After(best.Timestamp) {
			b := e
			best = &b
		}
	}
	return best, nil
}

func (s *EventStore) ExistsRealPunchBetween(_ context.Context, tenantID, employeeID string, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.Events {
		if e.TenantID == tenantID && e.EmployeeID == employeeID && !e.IsGenerated &&
			!e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *EventStore) ExistsKindBetween(_ context.Context, tenantID, employeeID string, kind attendance.PunchKind, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.Events {
		if e.TenantID == tenantID && e.EmployeeID == employeeID && !e.IsGenerated &&
			e.Kind == kind && !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *EventStore) ExistsGeneratedBetween(_ context.Context, tenantID, employeeID string, generatedBy string, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.Events {
		if e.TenantID == tenantID && e.EmployeeID == employeeID && e.IsGenerated &&
			e.GeneratedBy != nil && *e.GeneratedBy == generatedBy &&
			!e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *EventStore) ListKindBetween(_ context.Context, tenantID string, kind attendance.PunchKind, from, to time.Time) ([]attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []attendance.Event
	for _, e := range s.Events {
		if e.TenantID == tenantID && !e.IsGenerated && e.Kind == kind &&
			!e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	sortByTimestamp(out)
	return out, nil
}

func (s *EventStore) ListOutsWithOvertimeBetween(_ context.Context, tenantID string, from, to time.Time, minMinutes int) ([]attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []attendance.Event
	for _, e := range s.Events {
		if e.TenantID != tenantID || e.Kind != attendance.PunchOut {
			continue
		}
		if e.OvertimeMinutes == nil || *e.OvertimeMinutes < minMinutes {
			continue
		}
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sortByTimestamp(out)
	return out, nil
}

func (s *EventStore) ListAnomaliesBetween(_ context.Context, tenantID string, from, to time.Time) ([]attendance.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []attendance.Event
	for _, e := range s.Events {
		if e.TenantID == tenantID && e.HasAnomaly &&
			!e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	sortByTimestamp(out)
	return out, nil
}

func sortByTimestamp(events []attendance.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// ---------------------------------------------------------------------------
// notifications

type NotificationLogStore struct {
	mu   sync.Mutex
	Logs map[string]notification.Log
	seq  int
}

func logKey(l notification.Log) string {
	return l.TenantID + "|" + l.EmployeeID + "|" + l.SessionDate.Format("2006-01-02") + "|" + l.SlotKey + "|" + string(l.Kind)
}

func (s *NotificationLogStore) InsertIfAbsent(_ context.Context, log notification.Log) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Logs == nil {
		s.Logs = map[string]notification.Log{}
	}
	key := logKey(log)
	if _, ok := s.Logs[key]; ok {
		return false, nil
	}
	s.seq++
	log.ID = fmt.Sprintf("nl-%d", s.seq)
	s.Logs[key] = log
	return true, nil
}

// DispatcherRecorder captures dispatched requests for assertions.
type DispatcherRecorder struct {
	mu       sync.Mutex
	Requests []notification.Request
}

func (d *DispatcherRecorder) Dispatch(_ context.Context, req notification.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Requests = append(d.Requests, req)
}

func (d *DispatcherRecorder) Sent() []notification.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Request(nil), d.Requests...)
}

// ---------------------------------------------------------------------------
// overtime ledger

type OvertimeStore struct {
	mu      sync.Mutex
	Entries map[string]overtime.Entry
	seq     int
}

func NewOvertimeStore() *OvertimeStore {
	return &OvertimeStore{Entries: map[string]overtime.Entry{}}
}

func workDateKey(tenantID, employeeID string, d time.Time) string {
	return tenantID + "|" + employeeID + "|" + d.Format("2006-01-02")
}

func (s *OvertimeStore) CreateIfAbsent(_ context.Context, entry overtime.Entry) (overtime.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.Entries {
		if workDateKey(e.TenantID, e.EmployeeID, e.Date) == workDateKey(entry.TenantID, entry.EmployeeID, entry.Date) {
			return overtime.Entry{}, false, nil
		}
	}
	s.seq++
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("ot-%d", s.seq)
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	s.Entries[entry.ID] = entry
	return entry, true, nil
}

func (s *OvertimeStore) GetByID(_ context.Context, id string, tenantID string) (overtime.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.Entries[id]
	if !ok || e.TenantID != tenantID {
		return overtime.Entry{}, overtime.ErrEntryNotFound
	}
	return e, nil
}

func (s *OvertimeStore) GetByEmployeeAndWorkDate(_ context.Context, tenantID, employeeID string, workDate time.Time) (*overtime.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.Entries {
		if workDateKey(e.TenantID, e.EmployeeID, e.Date) == workDateKey(tenantID, employeeID, workDate) {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (s *OvertimeStore) ListByIDs(_ context.Context, tenantID string, ids []string) ([]overtime.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []overtime.Entry
	for _, id := range ids {
		if e, ok := s.Entries[id]; ok && e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *OvertimeStore) ListConvertibleByEmployee(_ context.Context, tenantID, employeeID string) ([]overtime.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []overtime.Entry
	for _, e := range s.Entries {
		if e.TenantID != tenantID || e.EmployeeID != employeeID || e.Status != overtime.StatusApproved {
			continue
		}
		if !e.AvailableHours().IsPositive() {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *OvertimeStore) SumHoursBetween(_ context.Context, tenantID, employeeID string, from, to time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, e := range s.Entries {
		if e.TenantID != tenantID || e.EmployeeID != employeeID || e.Status == overtime.StatusRejected {
			continue
		}
		d := e.Date.Format("2006-01-02")
		if d >= from.Format("2006-01-02") && d <= to.Format("2006-01-02") {
			total = total.Add(e.Hours)
		}
	}
	return total, nil
}

func (s *OvertimeStore) Update(_ context.Context, entry overtime.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.Entries[entry.ID]
	if !ok {
		return overtime.ErrEntryNotFound
	}
	entry.CreatedAt = old.CreatedAt
	entry.UpdatedAt = time.Now()
	s.Entries[entry.ID] = entry
	return nil
}

// ---------------------------------------------------------------------------
// recovery ledger

type RecoveryStore struct {
	mu     sync.Mutex
	Grants map[string]recovery.Grant
	Links  []recovery.Link
	seq    int
}

func NewRecoveryStore() *RecoveryStore {
	return &RecoveryStore{Grants: map[string]recovery.Grant{}}
}

func (s *RecoveryStore) CreateGrant(_ context.Context, grant recovery.Grant) (recovery.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if grant.ID == "" {
		grant.ID = fmt.Sprintf("grant-%d", s.seq)
	}
	grant.CreatedAt = time.Now()
	grant.UpdatedAt = grant.CreatedAt
	s.Grants[grant.ID] = grant
	return grant, nil
}

func (s *RecoveryStore) GetGrantByID(_ context.Context, id string, tenantID string) (recovery.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.Grants[id]
	if !ok || g.TenantID != tenantID {
		return recovery.Grant{}, recovery.ErrGrantNotFound
	}
	return g, nil
}

func (s *RecoveryStore) ListGrantsByIDs(_ context.Context, tenantID string, ids []string) ([]recovery.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []recovery.Grant
	for _, id := range ids {
		if g, ok := s.Grants[id]; ok && g.TenantID == tenantID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *RecoveryStore) UpdateGrantStatus(_ context.Context, id, tenantID string, status recovery.GrantStatus, justification *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.Grants[id]
	if !ok || g.TenantID != tenantID {
		return recovery.ErrGrantNotFound
	}
	g.Status = status
	if justification != nil {
		g.Justification = justification
	}
	g.UpdatedAt = time.Now()
	s.Grants[id] = g
	return nil
}

func (s *RecoveryStore) ListGrantsEndedBefore(_ context.Context, tenantID string, status recovery.GrantStatus, day time.Time) ([]recovery.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := day.Format("2006-01-02")
	var out []recovery.Grant
	for _, g := range s.Grants {
		if g.TenantID == tenantID && g.Status == status && g.EndDate.Format("2006-01-02") < d {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (s *RecoveryStore) CreateLink(_ context.Context, link recovery.Link) (recovery.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if link.ID == "" {
		link.ID = fmt.Sprintf("link-%d", s.seq)
	}
	link.CreatedAt = time.Now()
	s.Links = append(s.Links, link)
	return link, nil
}

func (s *RecoveryStore) ListLinksByOvertime(_ context.Context, overtimeID string) ([]recovery.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []recovery.Link
	for _, l := range s.Links {
		if l.OvertimeID == overtimeID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *RecoveryStore) ListLinksByGrants(_ context.Context, grantIDs []string) ([]recovery.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := map[string]bool{}
	for _, id := range grantIDs {
		want[id] = true
	}
	var out []recovery.Link
	for _, l := range s.Links {
		if want[l.RecoveryDayID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *RecoveryStore) DeleteLinksByGrants(_ context.Context, grantIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := map[string]bool{}
	for _, id := range grantIDs {
		want[id] = true
	}
	var kept []recovery.Link
	for _, l := range s.Links {
		if !want[l.RecoveryDayID] {
			kept = append(kept, l)
		}
	}
	s.Links = kept
	return nil
}

func (s *RecoveryStore) ExistsActiveGrantCovering(_ context.Context, tenantID, employeeID string, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := day.Format("2006-01-02")
	for _, g := range s.Grants {
		if g.TenantID != tenantID || g.EmployeeID != employeeID {
			continue
		}
		if g.Status != recovery.GrantPending && g.Status != recovery.GrantApproved {
			continue
		}
		if g.StartDate.Format("2006-01-02") <= d && d <= g.EndDate.Format("2006-01-02") {
			return true, nil
		}
	}
	return false, nil
}
