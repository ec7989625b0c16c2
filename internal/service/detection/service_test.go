package detection

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/notification"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/service/shiftwindow"
	"github.com/assyin/pointaflex-26-sub002/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	tenant   tenant.Tenant
	events   *testutil.EventStore
	entries  *testutil.EntryStore
	logs     *testutil.NotificationLogStore
	dispatch *testutil.DispatcherRecorder
	recovery *testutil.RecoveryStore
	leave    *testutil.LeaveStore
	loc      *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	tn := tenant.Tenant{
		ID:       "t1",
		Timezone: "Europe/Paris",
		Active:   true,
		Settings: tenant.Settings{
			DetectionWindowMinutes:       60,
			LateToleranceMinutes:         15,
			LateNotifyThresholdMinutes:   30,
			AbsenceBufferMinutes:         60,
			AbsenceStartToleranceMinutes: 30,
			PartialLookbackHours:         4,
		},
	}

	employees := &testutil.EmployeeStore{Employees: []employee.Employee{{
		ID:       "e1",
		TenantID: "t1",
		FullName: "Karim Haddad",
		Status:   employee.StatusActive,
	}}}
	shifts := &testutil.ShiftStore{Shifts: []schedule.Shift{
		{ID: "day", TenantID: "t1", Name: "Day", StartTime: "08:00", EndTime: "16:00"},
		{ID: "night", TenantID: "t1", Name: "Night", StartTime: "22:00", EndTime: "06:00", IsNightShift: true},
	}}

	f := &fixture{
		tenant:   tn,
		events:   &testutil.EventStore{},
		entries:  &testutil.EntryStore{},
		logs:     &testutil.NotificationLogStore{},
		dispatch: &testutil.DispatcherRecorder{},
		recovery: testutil.NewRecoveryStore(),
		leave:    &testutil.LeaveStore{},
		loc:      loc,
	}

	windows := shiftwindow.NewService(f.entries, shifts)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.svc = NewService(f.events, employees, windows, f.leave, f.recovery, f.logs, f.dispatch, logger)

	return f
}

// today is the fixed sweep day used by all tests.
var todayUTC = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func (f *fixture) schedule(shiftID string, date time.Time) {
	f.entries.Entries = append(f.entries.Entries, schedule.Entry{
		ID:         "entry-" + shiftID + date.Format("0102"),
		TenantID:   "t1",
		EmployeeID: "e1",
		Date:       date,
		ShiftID:    shiftID,
		Status:     schedule.EntryPublished,
	})
}

func (f *fixture) punch(kind attendance.PunchKind, day time.Time, h, m int) attendance.Event {
	ev, _ := f.events.Create(context.Background(), attendance.Event{
		TenantID:   "t1",
		EmployeeID: "e1",
		Timestamp:  time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, f.loc),
		Kind:       kind,
		Method:     "badge",
	})
	return ev
}

func (f *fixture) sweepAt(t *testing.T, day time.Time, h, m int) {
	t.Helper()
	f.svc.now = func() time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, f.loc)
	}
	require.NoError(t, f.svc.RunSweep(context.Background(), f.tenant))
}

func (f *fixture) logsOfKind(kind attendance.AnomalyKind) []notification.Log {
	var out []notification.Log
	for _, l := range f.logs.Logs {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

func TestMissingInNotBeforeDetectionWindow(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)

	f.sweepAt(t, todayUTC, 8, 30)

	assert.Empty(t, f.logs.Logs)
	assert.Empty(t, f.dispatch.Sent())
}

func TestMissingInAfterDetectionWindow(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)

	f.sweepAt(t, todayUTC, 9, 30)

	logs := f.logsOfKind(attendance.AnomalyMissingIn)
	require.Len(t, logs, 1)
	assert.Equal(t, "shift_start:08:00", logs[0].SlotKey)
	assert.Equal(t, 1, logs[0].EscalationLevel)
	require.Len(t, f.dispatch.Sent(), 1)
	assert.Equal(t, attendance.AnomalyMissingIn, f.dispatch.Sent()[0].Kind)
}

func TestMissingInEscalatesAfterSecondWindow(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)

	f.sweepAt(t, todayUTC, 10, 5)

	logs := f.logsOfKind(attendance.AnomalyMissingIn)
	require.Len(t, logs, 2)

	levels := map[int]bool{}
	for _, l := range logs {
		levels[l.EscalationLevel] = true
	}
	assert.True(t, levels[1])
	assert.True(t, levels[2])

	// Re-running must not add rows or dispatches.
	sent := len(f.dispatch.Sent())
	f.sweepAt(t, todayUTC, 10, 30)
	assert.Len(t, f.logsOfKind(attendance.AnomalyMissingIn), 2)
	assert.Len(t, f.dispatch.Sent(), sent)
}

func TestMissingInNotFiredForInAfterShiftEnd(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	// Hours after the 16:00 end, but the employee did show up today.
	f.punch(attendance.PunchIn, todayUTC, 19, 0)

	f.sweepAt(t, todayUTC, 21, 0)

	assert.Empty(t, f.logsOfKind(attendance.AnomalyMissingIn))
}

func TestLateFlaggedAndNotified(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	in := f.punch(attendance.PunchIn, todayUTC, 8, 31)

	f.sweepAt(t, todayUTC, 10, 0)

	stored, err := f.events.GetByID(context.Background(), in.ID, "t1")
	require.NoError(t, err)
	assert.True(t, stored.HasAnomaly)
	require.NotNil(t, stored.AnomalyKind)
	assert.Equal(t, attendance.AnomalyLate, *stored.AnomalyKind)
	require.NotNil(t, stored.LateMinutes)
	assert.Equal(t, 31, *stored.LateMinutes)

	require.Len(t, f.logsOfKind(attendance.AnomalyLate), 1)
	assert.Empty(t, f.logsOfKind(attendance.AnomalyMissingIn))

	// Idempotent on re-run.
	f.sweepAt(t, todayUTC, 11, 0)
	assert.Len(t, f.logsOfKind(attendance.AnomalyLate), 1)
	assert.Len(t, f.dispatch.Sent(), 1)
}

func TestLateBelowThresholdRecordedNotNotified(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	f.punch(attendance.PunchIn, todayUTC, 8, 20)

	f.sweepAt(t, todayUTC, 10, 0)

	assert.Empty(t, f.logsOfKind(attendance.AnomalyLate))
	assert.Empty(t, f.dispatch.Sent())
}

func TestMissingOutAfterWindowElapsed(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	in := f.punch(attendance.PunchIn, todayUTC, 8, 0)

	// 16:30 is before end (16:00) + detection window.
	f.sweepAt(t, todayUTC, 16, 30)
	assert.Empty(t, f.logsOfKind(attendance.AnomalyMissingOut))

	f.sweepAt(t, todayUTC, 17, 30)

	stored, err := f.events.GetByID(context.Background(), in.ID, "t1")
	require.NoError(t, err)
	assert.True(t, stored.HasAnomaly)
	require.NotNil(t, stored.AnomalyKind)
	assert.Equal(t, attendance.AnomalyMissingOut, *stored.AnomalyKind)

	logs := f.logsOfKind(attendance.AnomalyMissingOut)
	require.Len(t, logs, 1)
	assert.Equal(t, "shift_end:16:00", logs[0].SlotKey)
}

func TestMissingOutNotFiredWhenOutExists(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	f.punch(attendance.PunchIn, todayUTC, 8, 0)
	f.punch(attendance.PunchOut, todayUTC, 16, 5)

	f.sweepAt(t, todayUTC, 17, 30)

	assert.Empty(t, f.logsOfKind(attendance.AnomalyMissingOut))
}

func TestNightShiftMissingOutWaitsUntilNoon(t *testing.T) {
	f := newFixture(t)
	yesterday := todayUTC.AddDate(0, 0, -1)
	f.schedule("night", yesterday)
	f.punch(attendance.PunchIn, yesterday, 22, 5)

	// 07:30: past end (06:00) + window, but before the noon floor.
	f.sweepAt(t, todayUTC, 7, 30)
	assert.Empty(t, f.logsOfKind(attendance.AnomalyMissingOut))

	f.sweepAt(t, todayUTC, 12, 30)

	logs := f.logsOfKind(attendance.AnomalyMissingOut)
	require.Len(t, logs, 1)
	assert.Equal(t, "shift_end:06:00", logs[0].SlotKey)
}

func TestAbsenceCreatesGeneratedEventOnce(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)

	f.sweepAt(t, todayUTC, 17, 30)

	var generated []attendance.Event
	for _, e := range f.events.Events {
		if e.IsGenerated {
			generated = append(generated, e)
		}
	}
	require.Len(t, generated, 1)
	assert.Equal(t, attendance.PunchIn, generated[0].Kind)
	require.NotNil(t, generated[0].GeneratedBy)
	assert.Equal(t, attendance.GeneratedByAbsence, *generated[0].GeneratedBy)
	require.NotNil(t, generated[0].AnomalyKind)
	assert.Equal(t, attendance.AnomalyAbsence, *generated[0].AnomalyKind)

	require.Len(t, f.logsOfKind(attendance.AnomalyAbsence), 1)

	// Second run: no extra event, no extra rows.
	events := len(f.events.Events)
	logs := len(f.logs.Logs)
	sent := len(f.dispatch.Sent())

	f.sweepAt(t, todayUTC, 18, 30)

	assert.Len(t, f.events.Events, events)
	assert.Len(t, f.logs.Logs, logs)
	assert.Len(t, f.dispatch.Sent(), sent)
}

func TestAbsenceNotEvaluatedBeforeBuffer(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)

	f.sweepAt(t, todayUTC, 16, 30)

	assert.Empty(t, f.logsOfKind(attendance.AnomalyAbsence))
}

func TestAbsenceVetoedByPunchNearStart(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	// 08:25 against an 08:00 start: inside the 30-minute tolerance.
	f.punch(attendance.PunchIn, todayUTC, 8, 25)

	f.sweepAt(t, todayUTC, 17, 30)

	assert.Empty(t, f.logsOfKind(attendance.AnomalyAbsence))
	for _, e := range f.events.Events {
		assert.False(t, e.IsGenerated)
	}
}

func TestAbsenceVetoedByAnyPunchInDay(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	f.punch(attendance.PunchOut, todayUTC, 13, 0)

	f.sweepAt(t, todayUTC, 17, 30)

	assert.Empty(t, f.logsOfKind(attendance.AnomalyAbsence))
}

func TestPartialAbsenceOutWithoutIn(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	out := f.punch(attendance.PunchOut, todayUTC, 13, 0)

	f.sweepAt(t, todayUTC, 14, 0)

	stored, err := f.events.GetByID(context.Background(), out.ID, "t1")
	require.NoError(t, err)
	assert.True(t, stored.HasAnomaly)
	require.NotNil(t, stored.AnomalyKind)
	assert.Equal(t, attendance.AnomalyAbsencePartial, *stored.AnomalyKind)

	require.Len(t, f.logsOfKind(attendance.AnomalyAbsencePartial), 1)
}

func TestPartialAbsenceNotFiredWithPrecedingIn(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	f.punch(attendance.PunchIn, todayUTC, 10, 0)
	f.punch(attendance.PunchOut, todayUTC, 13, 0)

	f.sweepAt(t, todayUTC, 14, 0)

	assert.Empty(t, f.logsOfKind(attendance.AnomalyAbsencePartial))
}

func TestLeaveExcludesDetection(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	f.leave.Approved = append(f.leave.Approved, testutil.LeavePeriod{
		TenantID:   "t1",
		EmployeeID: "e1",
		StartDate:  todayUTC,
		EndDate:    todayUTC,
	})

	f.sweepAt(t, todayUTC, 17, 30)

	assert.Empty(t, f.logs.Logs)
}

func TestRecoveryDayExcludesDetection(t *testing.T) {
	f := newFixture(t)
	f.schedule("day", todayUTC)
	_, err := f.recovery.CreateGrant(context.Background(), recovery.Grant{
		TenantID:   "t1",
		EmployeeID: "e1",
		StartDate:  todayUTC,
		EndDate:    todayUTC,
		Days:       1,
		Status:     recovery.GrantApproved,
	})
	require.NoError(t, err)

	f.sweepAt(t, todayUTC, 17, 30)

	assert.Empty(t, f.logs.Logs)
}

func TestSuspendedEntryExcludesDetection(t *testing.T) {
	f := newFixture(t)
	leaveID := "lv-1"
	f.entries.Entries = append(f.entries.Entries, schedule.Entry{
		ID:                 "entry-susp",
		TenantID:           "t1",
		EmployeeID:         "e1",
		Date:               todayUTC,
		ShiftID:            "day",
		Status:             schedule.EntrySuspendedByLeave,
		SuspendedByLeaveID: &leaveID,
	})

	f.sweepAt(t, todayUTC, 17, 30)

	assert.Empty(t, f.logs.Logs)
}

func TestEscalationLevel(t *testing.T) {
	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	window := time.Hour

	assert.Equal(t, 0, escalationLevel(base.Add(-time.Minute), base, window))
	assert.Equal(t, 1, escalationLevel(base, base, window))
	assert.Equal(t, 1, escalationLevel(base.Add(59*time.Minute), base, window))
	assert.Equal(t, 2, escalationLevel(base.Add(time.Hour), base, window))
}
