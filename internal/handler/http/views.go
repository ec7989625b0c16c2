package http

import (
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
)

// JSON views of the domain entities. Entities carry no wire tags on purpose;
// the shape of the API is decided here.

type eventView struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	Timestamp       string  `json:"timestamp"`
	Kind            string  `json:"kind"`
	Method          string  `json:"method"`
	HasAnomaly      bool    `json:"has_anomaly"`
	AnomalyKind     *string `json:"anomaly_kind,omitempty"`
	AnomalyNote     *string `json:"anomaly_note,omitempty"`
	IsGenerated     bool    `json:"is_generated"`
	GeneratedBy     *string `json:"generated_by,omitempty"`
	OvertimeMinutes *int    `json:"overtime_minutes,omitempty"`
	LateMinutes     *int    `json:"late_minutes,omitempty"`
}

func toEventView(e attendance.Event) eventView {
	v := eventView{
		ID:              e.ID,
		EmployeeID:      e.EmployeeID,
		Timestamp:       e.Timestamp.UTC().Format(time.RFC3339),
		Kind:            string(e.Kind),
		Method:          e.Method,
		HasAnomaly:      e.HasAnomaly,
		AnomalyNote:     e.AnomalyNote,
		IsGenerated:     e.IsGenerated,
		GeneratedBy:     e.GeneratedBy,
		OvertimeMinutes: e.OvertimeMinutes,
		LateMinutes:     e.LateMinutes,
	}
	if e.AnomalyKind != nil {
		kind := string(*e.AnomalyKind)
		v.AnomalyKind = &kind
	}
	return v
}

func toEventViews(events []attendance.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, toEventView(e))
	}
	return views
}

type overtimeView struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	WorkDate      string  `json:"work_date"`
	Hours         string  `json:"hours"`
	ApprovedHours *string `json:"approved_hours,omitempty"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	Available     string  `json:"available_hours"`
	Note          *string `json:"note,omitempty"`
}

func toOvertimeView(e overtime.Entry) overtimeView {
	v := overtimeView{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		WorkDate:   e.Date.Format("2006-01-02"),
		Hours:      e.Hours.String(),
		Status:     string(e.Status),
		Type:       string(e.Type),
		Available:  e.AvailableHours().String(),
		Note:       e.Note,
	}
	if e.ApprovedHours != nil {
		h := e.ApprovedHours.String()
		v.ApprovedHours = &h
	}
	return v
}

type grantView struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Days          int     `json:"days"`
	SourceHours   string  `json:"source_hours"`
	Status        string  `json:"status"`
	Justification *string `json:"justification,omitempty"`
}

func toGrantView(g recovery.Grant) grantView {
	return grantView{
		ID:            g.ID,
		EmployeeID:    g.EmployeeID,
		StartDate:     g.StartDate.Format("2006-01-02"),
		EndDate:       g.EndDate.Format("2006-01-02"),
		Days:          g.Days,
		SourceHours:   g.SourceHours.String(),
		Status:        string(g.Status),
		Justification: g.Justification,
	}
}

func toGrantViews(grants []recovery.Grant) []grantView {
	views := make([]grantView, 0, len(grants))
	for _, g := range grants {
		views = append(views, toGrantView(g))
	}
	return views
}
