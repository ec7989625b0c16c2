package attendance

import "time"

type PunchKind string

const (
	PunchIn  PunchKind = "IN"
	PunchOut PunchKind = "OUT"
)

// Producers of generated events, stored in Event.GeneratedBy.
const (
	GeneratedByAutoClose = "auto_close"
	GeneratedByAbsence   = "absence_detector"
)

// AnomalyKind is a closed enum. New kinds require a detector and a slot key;
// free-form strings are rejected at the repository layer.
type AnomalyKind string

const (
	AnomalyLate            AnomalyKind = "LATE"
	AnomalyMissingIn       AnomalyKind = "MISSING_IN"
	AnomalyMissingOut      AnomalyKind = "MISSING_OUT"
	AnomalyAbsence         AnomalyKind = "ABSENCE"
	AnomalyAbsencePartial  AnomalyKind = "ABSENCE_PARTIAL"
	AnomalyAutoCorrection  AnomalyKind = "AUTO_CORRECTION"
	AnomalyAutoClosedCheck AnomalyKind = "AUTO_CLOSED_CHECK_OVERTIME"

	// Reserved extension point: no detector produces this kind yet.
	AnomalyAbsenceTechnical AnomalyKind = "ABSENCE_TECHNICAL"
)

// AllAnomalyKinds returns every kind the engine can attach to an event.
func AllAnomalyKinds() []AnomalyKind {
	return []AnomalyKind{
		AnomalyLate,
		AnomalyMissingIn,
		AnomalyMissingOut,
		AnomalyAbsence,
		AnomalyAbsencePartial,
		AnomalyAutoCorrection,
		AnomalyAutoClosedCheck,
		AnomalyAbsenceTechnical,
	}
}

// Valid reports whether k is a known anomaly kind.
func (k AnomalyKind) Valid() bool {
	for _, known := range AllAnomalyKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Event is one row of the append-only punch ledger. Rows are created by a
// physical punch or synthesized by the engine (IsGenerated=true); they are
// never deleted except by explicit correction, and mutated only to attach or
// clear anomaly flags and the computed overtime minutes.
type Event struct {
	ID         string
	TenantID   string
	EmployeeID string
	Timestamp  time.Time // absolute instant, stored UTC
	Kind       PunchKind
	Method     string // badge, mobile, web, generated

	HasAnomaly  bool
	AnomalyKind *AnomalyKind
	AnomalyNote *string

	IsGenerated   bool
	GeneratedBy   *string // auto_close, absence_detector
	SourceEventID *string // provenance: the IN an auto-close OUT was derived from

	// OvertimeMinutes is set on OUT events at punch time: minutes worked past
	// the resolved shift end.
	OvertimeMinutes *int

	LateMinutes *int // set on IN events punched after the shift start

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsReal reports whether the event came from an actual punch rather than
// being manufactured by a batch engine.
func (e Event) IsReal() bool {
	return !e.IsGenerated
}
