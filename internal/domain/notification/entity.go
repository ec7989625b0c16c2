package notification

import (
	"context"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
)

// Request is the structured "anomaly detected" message handed to the
// Dispatcher. The dispatcher owns templating, delivery and delivery audit;
// it feeds nothing back into detection.
type Request struct {
	TenantID        string
	EmployeeID      string
	Kind            attendance.AnomalyKind
	EscalationLevel int
	Context         map[string]string
}

// Dispatcher consumes Requests fire-and-forget: Dispatch must never block the
// caller on delivery, and delivery failure must never surface as an error in
// the detection path.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request)
}

// Log is the idempotency record: one row per (tenant, employee, session day,
// shift slot, anomaly kind). Its conditional insert is the sole guard against
// duplicate notifications across repeated job runs.
type Log struct {
	ID              string
	TenantID        string
	EmployeeID      string
	SessionDate     time.Time // calendar day of the shift
	SlotKey         string    // "shift_start:08:00", "shift_end:17:00", "absence", ...
	Kind            attendance.AnomalyKind
	EscalationLevel int
	SentAt          time.Time
}
