package autoclose

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/service/shiftwindow"
	"github.com/assyin/pointaflex-26-sub002/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	tenant   tenant.Tenant
	events   *testutil.EventStore
	overtime *testutil.OvertimeStore
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
			DetectionWindowMinutes:         60,
			AutoCloseOvertimeBufferMinutes: 30,
		},
	}

	shiftID := "day"
	employees := &testutil.EmployeeStore{Employees: []employee.Employee{{
		ID:               "e1",
		TenantID:         "t1",
		FullName:         "Lena Fournier",
		DefaultShiftID:   &shiftID,
		OvertimeEligible: true,
		Status:           employee.StatusActive,
	}}}
	shifts := &testutil.ShiftStore{Shifts: []schedule.Shift{{
		ID:        "day",
		TenantID:  "t1",
		Name:      "Day",
		StartTime: "08:00",
		EndTime:   "17:00",
	}}}

	f := &fixture{
		tenant:   tn,
		events:   &testutil.EventStore{},
		overtime: testutil.NewOvertimeStore(),
		loc:      loc,
	}

	windows := shiftwindow.NewService(&testutil.EntryStore{}, shifts)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.svc = NewService(testutil.Tx{}, f.events, employees, f.overtime, windows, logger)

	return f
}

var sessionDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func (f *fixture) at(day time.Time, h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, f.loc)
}

func (f *fixture) openIn(day time.Time, h, m int, flagged bool) attendance.Event {
	ev := attendance.Event{
		TenantID:   "t1",
		EmployeeID: "e1",
		Timestamp:  f.at(day, h, m),
		Kind:       attendance.PunchIn,
		Method:     "badge",
	}
	if flagged {
		kind := attendance.AnomalyMissingOut
		ev.HasAnomaly = true
		ev.AnomalyKind = &kind
	}
	created, _ := f.events.Create(context.Background(), ev)
	return created
}

func (f *fixture) runAt(t *testing.T, day time.Time, h, m int) {
	t.Helper()
	f.svc.now = func() time.Time { return f.at(day, h, m) }
	require.NoError(t, f.svc.Run(context.Background(), f.tenant))
}

func (f *fixture) syntheticOuts() []attendance.Event {
	var out []attendance.Event
	for _, e := range f.events.Events {
		if e.Kind == attendance.PunchOut && e.IsGenerated {
			out = append(out, e)
		}
	}
	return out
}

func TestCloseAtShiftEndPlusBuffer(t *testing.T) {
	f := newFixture(t)
	in := f.openIn(sessionDay, 8, 0, true)
	nextDay := sessionDay.AddDate(0, 0, 1)

	f.runAt(t, nextDay, 3, 0)

	outs := f.syntheticOuts()
	require.Len(t, outs, 1)
	assert.True(t, outs[0].Timestamp.Equal(f.at(sessionDay, 17, 30)))
	require.NotNil(t, outs[0].AnomalyKind)
	assert.Equal(t, attendance.AnomalyAutoCorrection, *outs[0].AnomalyKind)
	require.NotNil(t, outs[0].GeneratedBy)
	assert.Equal(t, attendance.GeneratedByAutoClose, *outs[0].GeneratedBy)
	require.NotNil(t, outs[0].SourceEventID)
	assert.Equal(t, in.ID, *outs[0].SourceEventID)

	stored, err := f.events.GetByID(context.Background(), in.ID, "t1")
	require.NoError(t, err)
	require.NotNil(t, stored.AnomalyKind)
	assert.Equal(t, attendance.AnomalyAutoCorrection, *stored.AnomalyKind)

	// Re-run: the session is closed, nothing new happens.
	f.runAt(t, nextDay, 4, 0)
	assert.Len(t, f.syntheticOuts(), 1)
}

func TestCloseWithApprovedOvertime(t *testing.T) {
	f := newFixture(t)
	f.openIn(sessionDay, 8, 0, true)

	approved := decimal.NewFromInt(2)
	_, _, err := f.overtime.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID:      "t1",
		EmployeeID:    "e1",
		Date:          sessionDay,
		Hours:         approved,
		ApprovedHours: &approved,
		Status:        overtime.StatusApproved,
		Type:          overtime.TypeStandard,
	})
	require.NoError(t, err)

	f.runAt(t, sessionDay.AddDate(0, 0, 1), 3, 0)

	outs := f.syntheticOuts()
	require.Len(t, outs, 1)
	assert.True(t, outs[0].Timestamp.Equal(f.at(sessionDay, 19, 0)))
	assert.Equal(t, attendance.AnomalyAutoCorrection, *outs[0].AnomalyKind)
	assert.Contains(t, *outs[0].AnomalyNote, "approved overtime")
}

func TestCloseWithPendingOvertimeDemandsReview(t *testing.T) {
	f := newFixture(t)
	in := f.openIn(sessionDay, 8, 0, true)

	_, _, err := f.overtime.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID:   "t1",
		EmployeeID: "e1",
		Date:       sessionDay,
		Hours:      decimal.NewFromInt(3),
		Status:     overtime.StatusPending,
		Type:       overtime.TypeStandard,
	})
	require.NoError(t, err)

	f.runAt(t, sessionDay.AddDate(0, 0, 1), 3, 0)

	outs := f.syntheticOuts()
	require.Len(t, outs, 1)
	// Closed at the unadjusted end, both events tagged for review.
	assert.True(t, outs[0].Timestamp.Equal(f.at(sessionDay, 17, 0)))
	assert.Equal(t, attendance.AnomalyAutoClosedCheck, *outs[0].AnomalyKind)

	stored, err := f.events.GetByID(context.Background(), in.ID, "t1")
	require.NoError(t, err)
	assert.Equal(t, attendance.AnomalyAutoClosedCheck, *stored.AnomalyKind)
}

func TestCloseWithoutBufferOrOvertime(t *testing.T) {
	f := newFixture(t)
	f.tenant.Settings.AutoCloseOvertimeBufferMinutes = 0
	f.openIn(sessionDay, 8, 0, false)

	f.runAt(t, sessionDay.AddDate(0, 0, 1), 3, 0)

	outs := f.syntheticOuts()
	require.Len(t, outs, 1)
	assert.True(t, outs[0].Timestamp.Equal(f.at(sessionDay, 17, 0)))
}

func TestLateOutClearsStaleFlag(t *testing.T) {
	f := newFixture(t)
	in := f.openIn(sessionDay, 8, 0, true)
	// The employee eventually punched OUT after being flagged.
	_, err := f.events.Create(context.Background(), attendance.Event{
		TenantID:   "t1",
		EmployeeID: "e1",
		Timestamp:  f.at(sessionDay, 23, 0),
		Kind:       attendance.PunchOut,
		Method:     "badge",
	})
	require.NoError(t, err)

	f.runAt(t, sessionDay.AddDate(0, 0, 1), 3, 0)

	assert.Empty(t, f.syntheticOuts())

	stored, err := f.events.GetByID(context.Background(), in.ID, "t1")
	require.NoError(t, err)
	assert.False(t, stored.HasAnomaly)
	assert.Nil(t, stored.AnomalyKind)
	require.NotNil(t, stored.AnomalyNote)
	assert.Contains(t, *stored.AnomalyNote, "cleared")
}

func TestOpenSessionInsideWindowNotClosed(t *testing.T) {
	f := newFixture(t)
	f.openIn(sessionDay, 8, 0, false)

	// 17:30 is between the shift end and the detection deadline.
	f.runAt(t, sessionDay, 17, 30)

	assert.Empty(t, f.syntheticOuts())
}
