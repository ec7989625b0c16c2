package overtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/employee"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOvertimeRepo struct {
	entries map[string]overtime.Entry
	seq     int
}

func newFakeOvertimeRepo() *fakeOvertimeRepo {
	return &fakeOvertimeRepo{entries: map[string]overtime.Entry{}}
}

func dayKey(tenantID, employeeID string, d time.Time) string {
	return tenantID + "|" + employeeID + "|" + d.Format("2006-01-02")
}

func (f *fakeOvertimeRepo) CreateIfAbsent(_ context.Context, entry overtime.Entry) (overtime.Entry, bool, error) {
	for _, e := range f.entries {
		if dayKey(e.TenantID, e.EmployeeID, e.Date) == dayKey(entry.TenantID, entry.EmployeeID, entry.Date) {
			return overtime.Entry{}, false, nil
		}
	}
	f.seq++
	entry.ID = fmt.Sprintf("ot-%d", f.seq)
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	f.entries[entry.ID] = entry
	return entry, true, nil
}

func (f *fakeOvertimeRepo) GetByID(_ context.Context, id string, tenantID string) (overtime.Entry, error) {
	e, ok := f.entries[id]
	if !ok || e.TenantID != tenantID {
		return overtime.Entry{}, overtime.ErrEntryNotFound
	}
	return e, nil
}

func (f *fakeOvertimeRepo) GetByEmployeeAndWorkDate(_ context.Context, tenantID, employeeID string, workDate time.Time) (*overtime.Entry, error) {
	for _, e := range f.entries {
		if dayKey(e.TenantID, e.EmployeeID, e.Date) == dayKey(tenantID, employeeID, workDate) {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (f *fakeOvertimeRepo) ListByIDs(_ context.Context, tenantID string, ids []string) ([]overtime.Entry, error) {
	var out []overtime.Entry
	for _, id := range ids {
		if e, ok := f.entries[id]; ok && e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOvertimeRepo) ListConvertibleByEmployee(_ context.Context, tenantID, employeeID string) ([]overtime.Entry, error) {
	var out []overtime.Entry
	for _, e := range f.entries {
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

func (f *fakeOvertimeRepo) SumHoursBetween(_ context.Context, tenantID, employeeID string, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range f.entries {
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

func (f *fakeOvertimeRepo) Update(_ context.Context, entry overtime.Entry) error {
	if _, ok := f.entries[entry.ID]; !ok {
		return overtime.ErrEntryNotFound
	}
	f.entries[entry.ID] = entry
	return nil
}

type fakeHolidayRepo struct {
	days map[string]bool
}

func (f *fakeHolidayRepo) IsHoliday(_ context.Context, tenantID string, day time.Time) (bool, error) {
	return f.days[tenantID+"|"+day.Format("2006-01-02")], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTenant() tenant.Tenant {
	return tenant.Tenant{
		ID:       "t1",
		Timezone: "Europe/Paris",
		Active:   true,
		Settings: tenant.Settings{
			MinOvertimeMinutes: 15,
			NightWindowStart:   "21:00",
			NightWindowEnd:     "06:00",
		},
	}
}

func testEmployee() employee.Employee {
	return employee.Employee{ID: "e1", TenantID: "t1", OvertimeEligible: true, Status: "active"}
}

func session(tn tenant.Tenant, emp employee.Employee, overMinutes int) SessionInput {
	loc := tn.Location()
	end := time.Date(2026, time.March, 2, 17, 0, 0, 0, loc)
	return SessionInput{
		Tenant:    tn,
		Employee:  emp,
		WorkDate:  time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		WindowEnd: end,
		OutTime:   end.Add(time.Duration(overMinutes) * time.Minute),
	}
}

func TestCreateFromSessionStandard(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	entry, created, err := svc.CreateFromSession(context.Background(), session(testTenant(), testEmployee(), 120))

	require.NoError(t, err)
	require.True(t, created)
	assert.True(t, entry.Hours.Equal(decimal.NewFromInt(2)), entry.Hours.String())
	assert.Equal(t, overtime.StatusPending, entry.Status)
	assert.Equal(t, overtime.TypeStandard, entry.Type)
	assert.Nil(t, entry.ApprovedHours)
}

func TestCreateFromSessionBelowMinimum(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	_, created, err := svc.CreateFromSession(context.Background(), session(testTenant(), testEmployee(), 10))

	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, repo.entries)
}

func TestCreateFromSessionIneligibleEmployee(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	emp := testEmployee()
	emp.OvertimeEligible = false

	_, created, err := svc.CreateFromSession(context.Background(), session(testTenant(), emp, 120))

	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateFromSessionAutoApprove(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	tn := testTenant()
	tn.Settings.AutoApproveMaxHours = decimal.NewFromInt(2)

	entry, created, err := svc.CreateFromSession(context.Background(), session(tn, testEmployee(), 90))

	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, overtime.StatusApproved, entry.Status)
	require.NotNil(t, entry.ApprovedHours)
	assert.True(t, entry.ApprovedHours.Equal(decimal.NewFromFloat(1.5)))
}

func TestCreateFromSessionHolidayClassification(t *testing.T) {
	repo := newFakeOvertimeRepo()
	holidays := &fakeHolidayRepo{days: map[string]bool{"t1|2026-03-02": true}}
	svc := NewService(repo, holidays, testLogger())

	entry, created, err := svc.CreateFromSession(context.Background(), session(testTenant(), testEmployee(), 60))

	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, overtime.TypeHoliday, entry.Type)
}

func TestCreateFromSessionNightClassification(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	tn := testTenant()
	in := session(tn, testEmployee(), 0)
	// Session ran 17:00 -> 22:30 local: the OUT lands inside the night window.
	in.OutTime = time.Date(2026, time.March, 2, 22, 30, 0, 0, tn.Location())

	entry, created, err := svc.CreateFromSession(context.Background(), in)

	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, overtime.TypeNight, entry.Type)
}

func TestCreateFromSessionWeeklyCapClampsHours(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	tn := testTenant()
	tn.Settings.WeeklyOvertimeCapHours = decimal.NewFromInt(10)

	// 9h already recorded earlier the same ISO week (Mon 2026-03-02).
	_, _, err := repo.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID:   "t1",
		EmployeeID: "e1",
		Date:       time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Hours:      decimal.NewFromInt(9),
		Status:     overtime.StatusApproved,
	})
	require.NoError(t, err)

	in := session(tn, testEmployee(), 180)
	in.WorkDate = time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	in.WindowEnd = time.Date(2026, time.March, 4, 17, 0, 0, 0, tn.Location())
	in.OutTime = in.WindowEnd.Add(3 * time.Hour)

	entry, created, err := svc.CreateFromSession(context.Background(), in)

	require.NoError(t, err)
	require.True(t, created)
	assert.True(t, entry.Hours.Equal(decimal.NewFromInt(1)), entry.Hours.String())
}

func TestCreateFromSessionCapExhaustedSkips(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	tn := testTenant()
	tn.Settings.WeeklyOvertimeCapHours = decimal.NewFromInt(5)

	_, _, err := repo.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID:   "t1",
		EmployeeID: "e1",
		Date:       time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Hours:      decimal.NewFromInt(5),
		Status:     overtime.StatusApproved,
	})
	require.NoError(t, err)

	in := session(tn, testEmployee(), 120)
	in.WorkDate = time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	_, created, err := svc.CreateFromSession(context.Background(), in)

	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateFromSessionDedupPerWorkDate(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	_, created, err := svc.CreateFromSession(context.Background(), session(testTenant(), testEmployee(), 60))
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = svc.CreateFromSession(context.Background(), session(testTenant(), testEmployee(), 90))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.entries, 1)
}

func TestApprovePartialHours(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	created, _, err := repo.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID:   "t1",
		EmployeeID: "e1",
		Date:       time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Hours:      decimal.NewFromInt(3),
		Status:     overtime.StatusPending,
	})
	require.NoError(t, err)

	half := decimal.NewFromFloat(1.5)
	entry, err := svc.Approve(context.Background(), "t1", created.ID, &half, true)

	require.NoError(t, err)
	assert.Equal(t, overtime.StatusApproved, entry.Status)
	require.NotNil(t, entry.ApprovedHours)
	assert.True(t, entry.ApprovedHours.Equal(half))
}

func TestApproveOverRecordedHours(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	created, _, err := repo.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID: "t1", EmployeeID: "e1",
		Date:   time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Hours:  decimal.NewFromInt(2),
		Status: overtime.StatusPending,
	})
	require.NoError(t, err)

	over := decimal.NewFromInt(5)
	_, err = svc.Approve(context.Background(), "t1", created.ID, &over, true)

	assert.ErrorIs(t, err, overtime.ErrApprovedOverHours)
}

func TestApproveRequiresAuthority(t *testing.T) {
	svc := NewService(newFakeOvertimeRepo(), &fakeHolidayRepo{}, testLogger())

	_, err := svc.Approve(context.Background(), "t1", "ot-1", nil, false)

	assert.ErrorIs(t, err, overtime.ErrApprovalNotAllowed)
}

func TestApproveAlreadyProcessed(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	created, _, err := repo.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID: "t1", EmployeeID: "e1",
		Date:   time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Hours:  decimal.NewFromInt(2),
		Status: overtime.StatusRejected,
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "t1", created.ID, nil, true)

	assert.ErrorIs(t, err, overtime.ErrAlreadyProcessed)
}

func TestReject(t *testing.T) {
	repo := newFakeOvertimeRepo()
	svc := NewService(repo, &fakeHolidayRepo{}, testLogger())

	created, _, err := repo.CreateIfAbsent(context.Background(), overtime.Entry{
		TenantID: "t1", EmployeeID: "e1",
		Date:   time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Hours:  decimal.NewFromInt(2),
		Status: overtime.StatusPending,
	})
	require.NoError(t, err)

	reason := "no prior authorization"
	entry, err := svc.Reject(context.Background(), "t1", created.ID, &reason, true)

	require.NoError(t, err)
	assert.Equal(t, overtime.StatusRejected, entry.Status)
	require.NotNil(t, entry.Note)
	assert.Equal(t, reason, *entry.Note)
}

func TestIsoWeekBounds(t *testing.T) {
	// Wednesday 2026-03-04 -> Monday 2026-03-02 .. Sunday 2026-03-08.
	from, to := isoWeekBounds(time.Date(2026, time.March, 4, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-03-02", from.Format("2006-01-02"))
	assert.Equal(t, "2026-03-08", to.Format("2006-01-02"))

	// Sunday stays in the week that started the previous Monday.
	from, to = isoWeekBounds(time.Date(2026, time.March, 8, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-03-02", from.Format("2006-01-02"))
	assert.Equal(t, "2026-03-08", to.Format("2006-01-02"))
}

func TestInNightWindow(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, time.March, 2, h, m, 0, 0, time.UTC)
	}

	assert.True(t, inNightWindow(at(22, 0), "21:00", "06:00"))
	assert.True(t, inNightWindow(at(2, 0), "21:00", "06:00"))
	assert.False(t, inNightWindow(at(12, 0), "21:00", "06:00"))
	assert.False(t, inNightWindow(at(6, 0), "21:00", "06:00"))
	assert.False(t, inNightWindow(at(12, 0), "", ""))
}
