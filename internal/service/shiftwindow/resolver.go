package shiftwindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/schedule"
)

// Source records which fallback rung produced a window. Detection code uses
// it for audit notes only; the resolution order itself lives in Resolve.
type Source string

const (
	SourceSchedule      Source = "SCHEDULE"
	SourceDefaultShift  Source = "DEFAULT_SHIFT"
	SourceTenantDefault Source = "TENANT_DEFAULT"
)

// Window is a concrete work session in the tenant timezone. A window resolved
// from the tenant default close time has a zero Start; callers that need a
// start boundary must check Start.IsZero().
type Window struct {
	Start   time.Time
	End     time.Time
	IsNight bool
	ShiftID string
	Source  Source
}

// Input carries everything Resolve needs. Entries are the employee's schedule
// entries for Date; Shifts must contain every shift those entries reference.
type Input struct {
	Date         time.Time
	Loc          *time.Location
	Entries      []schedule.Entry
	Shifts       map[string]schedule.Shift
	DefaultShift *schedule.Shift
	// Anchor disambiguates days with several entries: the entry whose start
	// is closest to the anchor wall-clock time wins.
	Anchor time.Time
	// DefaultCloseTime is the tenant-level "18:00" fallback, empty to disable.
	DefaultCloseTime string
}

// Resolve maps a calendar day to the work window that governs it, walking the
// fallback chain: published schedule entry, then the employee default shift,
// then the tenant default close time. The second return is false when no rung
// produced a window, which callers treat as "no session expected today".
func Resolve(in Input) (Window, bool) {
	loc := in.Loc
	if loc == nil {
		loc = time.UTC
	}

	if w, ok := resolveFromSchedule(in, loc); ok {
		return w, true
	}

	if in.DefaultShift != nil {
		w, err := windowFromTimes(in.Date, loc, in.DefaultShift.StartTime, in.DefaultShift.EndTime, in.DefaultShift.IsNightShift)
		if err == nil {
			w.ShiftID = in.DefaultShift.ID
			w.Source = SourceDefaultShift
			return w, true
		}
	}

	if in.DefaultCloseTime != "" {
		end, err := atClock(in.Date, loc, in.DefaultCloseTime)
		if err == nil {
			return Window{End: end, Source: SourceTenantDefault}, true
		}
	}

	return Window{}, false
}

func resolveFromSchedule(in Input, loc *time.Location) (Window, bool) {
	var (
		best     Window
		bestDist = -1
	)

	anchorMin := -1
	if !in.Anchor.IsZero() {
		a := in.Anchor.In(loc)
		anchorMin = a.Hour()*60 + a.Minute()
	}

	for _, entry := range in.Entries {
		if entry.Status != schedule.EntryPublished {
			continue
		}

		shift, ok := in.Shifts[entry.ShiftID]
		if !ok {
			continue
		}

		startStr, endStr := shift.StartTime, shift.EndTime
		if entry.CustomStartTime != nil {
			startStr = *entry.CustomStartTime
		}
		if entry.CustomEndTime != nil {
			endStr = *entry.CustomEndTime
		}

		w, err := windowFromTimes(in.Date, loc, startStr, endStr, shift.IsNightShift)
		if err != nil {
			continue
		}
		w.ShiftID = shift.ID
		w.Source = SourceSchedule

		if anchorMin < 0 {
			return w, true
		}

		startMin := w.Start.In(loc).Hour()*60 + w.Start.In(loc).Minute()
		dist := clockDistance(anchorMin, startMin)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = w, dist
		}
	}

	return best, bestDist >= 0
}

// clockDistance is the wraparound distance in minutes between two
// minutes-of-day values, so 23:30 and 00:30 are 60 apart, not 1380.
func clockDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 720 {
		d = 1440 - d
	}
	return d
}

func windowFromTimes(date time.Time, loc *time.Location, startStr, endStr string, nightFlag bool) (Window, error) {
	start, err := atClock(date, loc, startStr)
	if err != nil {
		return Window{}, err
	}
	end, err := atClock(date, loc, endStr)
	if err != nil {
		return Window{}, err
	}

	// A night session ends on the next calendar day.
	night := nightFlag || start.Hour() >= 20 || end.Hour() <= 8
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
		night = true
	}

	return Window{Start: start, End: end, IsNight: night}, nil
}

// atClock pins a "15:04" wall-clock string onto a calendar day in loc.
func atClock(date time.Time, loc *time.Location, clock string) (time.Time, error) {
	h, m, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, loc), nil
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hour, minute, nil
}
