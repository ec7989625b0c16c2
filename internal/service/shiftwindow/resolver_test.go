package shiftwindow

import (
	"testing"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = mustLoadLocation("Europe/Paris")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveFromScheduleEntry(t *testing.T) {
	shift := schedule.Shift{ID: "shift-1", StartTime: "08:00", EndTime: "17:00"}

	w, ok := Resolve(Input{
		Date:    day(2026, time.March, 2),
		Loc:     paris,
		Entries: []schedule.Entry{{ShiftID: "shift-1", Status: schedule.EntryPublished}},
		Shifts:  map[string]schedule.Shift{"shift-1": shift},
	})

	require.True(t, ok)
	assert.Equal(t, SourceSchedule, w.Source)
	assert.Equal(t, "shift-1", w.ShiftID)
	assert.Equal(t, time.Date(2026, time.March, 2, 8, 0, 0, 0, paris), w.Start)
	assert.Equal(t, time.Date(2026, time.March, 2, 17, 0, 0, 0, paris), w.End)
	assert.False(t, w.IsNight)
}

func TestResolveCustomTimesOverrideShift(t *testing.T) {
	shift := schedule.Shift{ID: "shift-1", StartTime: "08:00", EndTime: "17:00"}
	customStart := "09:30"
	customEnd := "18:30"

	w, ok := Resolve(Input{
		Date: day(2026, time.March, 2),
		Loc:  paris,
		Entries: []schedule.Entry{{
			ShiftID:         "shift-1",
			Status:          schedule.EntryPublished,
			CustomStartTime: &customStart,
			CustomEndTime:   &customEnd,
		}},
		Shifts: map[string]schedule.Shift{"shift-1": shift},
	})

	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.March, 2, 9, 30, 0, 0, paris), w.Start)
	assert.Equal(t, time.Date(2026, time.March, 2, 18, 30, 0, 0, paris), w.End)
}

func TestResolveNightShiftEndsNextDay(t *testing.T) {
	shift := schedule.Shift{ID: "night", StartTime: "22:00", EndTime: "06:00", IsNightShift: true}

	w, ok := Resolve(Input{
		Date:    day(2026, time.March, 2),
		Loc:     paris,
		Entries: []schedule.Entry{{ShiftID: "night", Status: schedule.EntryPublished}},
		Shifts:  map[string]schedule.Shift{"night": shift},
	})

	require.True(t, ok)
	assert.True(t, w.IsNight)
	assert.Equal(t, time.Date(2026, time.March, 2, 22, 0, 0, 0, paris), w.Start)
	assert.Equal(t, time.Date(2026, time.March, 3, 6, 0, 0, 0, paris), w.End)
}

func TestResolveNightInferredFromTimes(t *testing.T) {
	// No stored flag, but the window crosses midnight.
	shift := schedule.Shift{ID: "s", StartTime: "21:00", EndTime: "05:00"}

	w, ok := Resolve(Input{
		Date:    day(2026, time.March, 2),
		Loc:     paris,
		Entries: []schedule.Entry{{ShiftID: "s", Status: schedule.EntryPublished}},
		Shifts:  map[string]schedule.Shift{"s": shift},
	})

	require.True(t, ok)
	assert.True(t, w.IsNight)
	assert.Equal(t, 3, w.End.Day())
}

func TestResolvePicksEntryClosestToAnchor(t *testing.T) {
	morning := schedule.Shift{ID: "m", StartTime: "06:00", EndTime: "14:00"}
	evening := schedule.Shift{ID: "e", StartTime: "14:00", EndTime: "22:00"}
	shifts := map[string]schedule.Shift{"m": morning, "e": evening}
	entries := []schedule.Entry{
		{ShiftID: "m", Status: schedule.EntryPublished},
		{ShiftID: "e", Status: schedule.EntryPublished},
	}

	// 15:12 local is nearer the evening start.
	anchor := time.Date(2026, time.March, 2, 15, 12, 0, 0, paris)

	w, ok := Resolve(Input{
		Date:    day(2026, time.March, 2),
		Loc:     paris,
		Entries: entries,
		Shifts:  shifts,
		Anchor:  anchor,
	})

	require.True(t, ok)
	assert.Equal(t, "e", w.ShiftID)
}

func TestResolveAnchorDistanceWrapsMidnight(t *testing.T) {
	// An anchor at 00:30 is 90 minutes from a 23:00 start, not 22.5 hours,
	// so the night entry must win over a 09:00 day entry.
	dayShift := schedule.Shift{ID: "d", StartTime: "09:00", EndTime: "17:00"}
	nightShift := schedule.Shift{ID: "n", StartTime: "23:00", EndTime: "07:00"}

	anchor := time.Date(2026, time.March, 3, 0, 30, 0, 0, paris)

	w, ok := Resolve(Input{
		Date: day(2026, time.March, 2),
		Loc:  paris,
		Entries: []schedule.Entry{
			{ShiftID: "d", Status: schedule.EntryPublished},
			{ShiftID: "n", Status: schedule.EntryPublished},
		},
		Shifts: map[string]schedule.Shift{"d": dayShift, "n": nightShift},
		Anchor: anchor,
	})

	require.True(t, ok)
	assert.Equal(t, "n", w.ShiftID)
}

func TestResolveSkipsSuspendedEntries(t *testing.T) {
	shift := schedule.Shift{ID: "s", StartTime: "08:00", EndTime: "17:00"}

	_, ok := Resolve(Input{
		Date:    day(2026, time.March, 2),
		Loc:     paris,
		Entries: []schedule.Entry{{ShiftID: "s", Status: schedule.EntrySuspendedByLeave}},
		Shifts:  map[string]schedule.Shift{"s": shift},
	})

	assert.False(t, ok)
}

func TestResolveFallsBackToDefaultShift(t *testing.T) {
	def := schedule.Shift{ID: "def", StartTime: "09:00", EndTime: "18:00"}

	w, ok := Resolve(Input{
		Date:         day(2026, time.March, 2),
		Loc:          paris,
		DefaultShift: &def,
	})

	require.True(t, ok)
	assert.Equal(t, SourceDefaultShift, w.Source)
	assert.Equal(t, "def", w.ShiftID)
	assert.Equal(t, 9, w.Start.Hour())
}

func TestResolveFallsBackToTenantCloseTime(t *testing.T) {
	w, ok := Resolve(Input{
		Date:             day(2026, time.March, 2),
		Loc:              paris,
		DefaultCloseTime: "18:00",
	})

	require.True(t, ok)
	assert.Equal(t, SourceTenantDefault, w.Source)
	assert.True(t, w.Start.IsZero())
	assert.Equal(t, time.Date(2026, time.March, 2, 18, 0, 0, 0, paris), w.End)
}

func TestResolveNoWindow(t *testing.T) {
	_, ok := Resolve(Input{Date: day(2026, time.March, 2), Loc: paris})
	assert.False(t, ok)
}

func TestResolveIgnoresEntryWithUnknownShift(t *testing.T) {
	_, ok := Resolve(Input{
		Date:    day(2026, time.March, 2),
		Loc:     paris,
		Entries: []schedule.Entry{{ShiftID: "missing", Status: schedule.EntryPublished}},
		Shifts:  map[string]schedule.Shift{},
	})

	assert.False(t, ok)
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "8", "25:00", "08:61", "ab:cd"} {
		_, _, err := parseClock(s)
		assert.Error(t, err, s)
	}
}

func TestClockDistance(t *testing.T) {
	assert.Equal(t, 0, clockDistance(480, 480))
	assert.Equal(t, 60, clockDistance(1410, 30))
	assert.Equal(t, 60, clockDistance(30, 1410))
	assert.Equal(t, 720, clockDistance(0, 720))
}
