package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type attendanceEventRepository struct {
	db *database.DB
}

func NewAttendanceEventRepository(db *database.DB) attendance.EventRepository {
	return &attendanceEventRepository{db: db}
}

const eventColumns = `
	id, tenant_id, employee_id, ts, kind, method,
	has_anomaly, anomaly_kind, anomaly_note,
	is_generated, generated_by, source_event_id,
	overtime_minutes, late_minutes,
	created_at, updated_at`

// eventColumnsI is eventColumns qualified with the "i" alias used by the
// open-session queries.
const eventColumnsI = `
	i.id, i.tenant_id, i.employee_id, i.ts, i.kind, i.method,
	i.has_anomaly, i.anomaly_kind, i.anomaly_note,
	i.is_generated, i.generated_by, i.source_event_id,
	i.overtime_minutes, i.late_minutes,
	i.created_at, i.updated_at`

func scanEvent(row pgx.Row) (attendance.Event, error) {
	var e attendance.Event
	err := row.Scan(
		&e.ID, &e.TenantID, &e.EmployeeID, &e.Timestamp, &e.Kind, &e.Method,
		&e.HasAnomaly, &e.AnomalyKind, &e.AnomalyNote,
		&e.IsGenerated, &e.GeneratedBy, &e.SourceEventID,
		&e.OvertimeMinutes, &e.LateMinutes,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func scanEvents(rows pgx.Rows) ([]attendance.Event, error) {
	defer rows.Close()

	var events []attendance.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Create implements attendance.EventRepository.
func (r *attendanceEventRepository) Create(ctx context.Context, event attendance.Event) (attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	if event.AnomalyKind != nil && !event.AnomalyKind.Valid() {
		return attendance.Event{}, attendance.ErrInvalidAnomalyKind
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	query := `
		INSERT INTO attendance_events (
			id, tenant_id, employee_id, ts, kind, method,
			has_anomaly, anomaly_kind, anomaly_note,
			is_generated, generated_by, source_event_id,
			overtime_minutes, late_minutes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		event.ID,
		event.TenantID,
		event.EmployeeID,
		event.Timestamp,
		event.Kind,
		event.Method,
		event.HasAnomaly,
		event.AnomalyKind,
		event.AnomalyNote,
		event.IsGenerated,
		event.GeneratedBy,
		event.SourceEventID,
		event.OvertimeMinutes,
		event.LateMinutes,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return attendance.Event{}, fmt.Errorf("failed to create attendance event: %w", err)
	}

	return event, nil
}

// GetByID implements attendance.EventRepository.
func (r *attendanceEventRepository) GetByID(ctx context.Context, id string, tenantID string) (attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE id = $1 AND tenant_id = $2`

	e, err := scanEvent(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Event{}, attendance.ErrEventNotFound
		}
		return attendance.Event{}, fmt.Errorf("failed to get attendance event by ID: %w", err)
	}

	return e, nil
}

// Update implements attendance.EventRepository. Only anomaly flags, notes and
// computed minutes are updatable; punch instants are immutable once written.
func (r *attendanceEventRepository) Update(ctx context.Context, event attendance.Event) error {
	q := GetQuerier(ctx, r.db)

	if event.AnomalyKind != nil && !event.AnomalyKind.Valid() {
		return attendance.ErrInvalidAnomalyKind
	}

	updates := []string{"has_anomaly = $1", "anomaly_kind = $2", "anomaly_note = $3"}
	args := []interface{}{event.HasAnomaly, event.AnomalyKind, event.AnomalyNote}
	argIdx := 4

	if event.OvertimeMinutes != nil {
		updates = append(updates, fmt.Sprintf("overtime_minutes = $%d", argIdx))
		args = append(args, event.OvertimeMinutes)
		argIdx++
	}
	if event.LateMinutes != nil {
		updates = append(updates, fmt.Sprintf("late_minutes = $%d", argIdx))
		args = append(args, event.LateMinutes)
		argIdx++
	}

	updates = append(updates, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now())
	argIdx++

	args = append(args, event.ID)
	idIdx := argIdx
	argIdx++
	args = append(args, event.TenantID)

	query := "UPDATE attendance_events SET " + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d AND tenant_id = $%d RETURNING id", idIdx, argIdx)

	var updatedID string
	if err := q.QueryRow(ctx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.ErrEventNotFound
		}
		return fmt.Errorf("failed to update attendance event: %w", err)
	}

	return nil
}

// openInCondition matches real IN events with no later OUT from the same
// employee within 24 hours (the maximum credible session length).
const openInCondition = `
	i.kind = 'IN'
	AND NOT i.is_generated
	AND NOT EXISTS (
		SELECT 1 FROM attendance_events o
		WHERE o.tenant_id = i.tenant_id
		  AND o.employee_id = i.employee_id
		  AND o.kind = 'OUT'
		  AND o.ts > i.ts
		  AND o.ts <= i.ts + interval '24 hours'
	)`

// GetOpenIn implements attendance.EventRepository.
func (r *attendanceEventRepository) GetOpenIn(ctx context.Context, tenantID, employeeID string, asOf time.Time, lookback time.Duration) (*attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumnsI + `
		FROM attendance_events i
		WHERE i.tenant_id = $1
		  AND i.employee_id = $2
		  AND i.ts <= $3
		  AND i.ts >= $4
		  AND ` + openInCondition + `
		ORDER BY i.ts DESC
		LIMIT 1
	`

	e, err := scanEvent(q.QueryRow(ctx, query, tenantID, employeeID, asOf, asOf.Add(-lookback)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}

	return &e, nil
}

// ListOpenIns implements attendance.EventRepository.
func (r *attendanceEventRepository) ListOpenIns(ctx context.Context, tenantID string, since time.Time) ([]attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumnsI + `
		FROM attendance_events i
		WHERE i.tenant_id = $1
		  AND i.ts >= $2
		  AND ` + openInCondition + `
		ORDER BY i.ts
	`

	rows, err := q.Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}

	return scanEvents(rows)
}

// ListFlaggedIns implements attendance.EventRepository. Openness is not
// required: a flagged IN whose OUT appeared later must still be revisited so
// its anomaly can be cleared.
func (r *attendanceEventRepository) ListFlaggedIns(ctx context.Context, tenantID string, kind attendance.AnomalyKind, since time.Time) ([]attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumnsI + `
		FROM attendance_events i
		WHERE i.tenant_id = $1
		  AND i.has_anomaly
		  AND i.anomaly_kind = $2
		  AND i.ts >= $3
		  AND i.kind = 'IN'
		  AND NOT i.is_generated
		ORDER BY i.ts
	`

	rows, err := q.Query(ctx, query, tenantID, kind, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged sessions: %w", err)
	}

	return scanEvents(rows)
}

// FindMatchingOut implements attendance.EventRepository.
func (r *attendanceEventRepository) FindMatchingOut(ctx context.Context, tenantID, employeeID string, after time.Time, within time.Duration) (*attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE tenant_id = $1
		  AND employee_id = $2
		  AND kind = 'OUT'
		  AND ts > $3
		  AND ts <= $4
		ORDER BY ts
		LIMIT 1
	`

	e, err := scanEvent(q.QueryRow(ctx, query, tenantID, employeeID, after, after.Add(within)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find matching OUT: %w", err)
	}

	return &e, nil
}

// FindMatchingIn implements attendance.EventRepository.
func (r *attendanceEventRepository) FindMatchingIn(ctx context.Context, tenantID, employeeID string, before time.Time, within time.Duration) (*attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE tenant_id = $1
		  AND employee_id = $2
		  AND kind = 'IN'
		  AND NOT is_generated
		  AND ts < $3
		  AND ts >= $4
		ORDER BY ts DESC
		LIMIT 1
	`

	e, err := scanEvent(q.QueryRow(ctx, query, tenantID, employeeID, before, before.Add(-within)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find matching IN: %w", err)
	}

	return &e, nil
}

// ExistsRealPunchBetween implements attendance.EventRepository.
func (r *attendanceEventRepository) ExistsRealPunchBetween(ctx context.Context, tenantID, employeeID string, from, to time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance_events
			WHERE tenant_id = $1 AND employee_id = $2
			  AND NOT is_generated
			  AND ts >= $3 AND ts < $4
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, tenantID, employeeID, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check real punches: %w", err)
	}

	return exists, nil
}

// ExistsKindBetween implements attendance.EventRepository.
func (r *attendanceEventRepository) ExistsKindBetween(ctx context.Context, tenantID, employeeID string, kind attendance.PunchKind, from, to time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance_events
			WHERE tenant_id = $1 AND employee_id = $2
			  AND kind = $3
			  AND NOT is_generated
			  AND ts >= $4 AND ts < $5
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, tenantID, employeeID, kind, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check punches by kind: %w", err)
	}

	return exists, nil
}

// ExistsGeneratedBetween implements attendance.EventRepository.
func (r *attendanceEventRepository) ExistsGeneratedBetween(ctx context.Context, tenantID, employeeID string, generatedBy string, from, to time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance_events
			WHERE tenant_id = $1 AND employee_id = $2
			  AND is_generated
			  AND generated_by = $3
			  AND ts >= $4 AND ts < $5
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, tenantID, employeeID, generatedBy, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check generated events: %w", err)
	}

	return exists, nil
}

// ListKindBetween implements attendance.EventRepository.
func (r *attendanceEventRepository) ListKindBetween(ctx context.Context, tenantID string, kind attendance.PunchKind, from, to time.Time) ([]attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE tenant_id = $1
		  AND kind = $2
		  AND NOT is_generated
		  AND ts >= $3 AND ts < $4
		ORDER BY ts
	`

	rows, err := q.Query(ctx, query, tenantID, kind, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches by kind: %w", err)
	}

	return scanEvents(rows)
}

// ListOutsWithOvertimeBetween implements attendance.EventRepository.
func (r *attendanceEventRepository) ListOutsWithOvertimeBetween(ctx context.Context, tenantID string, from, to time.Time, minMinutes int) ([]attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE tenant_id = $1
		  AND kind = 'OUT'
		  AND overtime_minutes >= $2
		  AND ts >= $3 AND ts < $4
		ORDER BY ts
	`

	rows, err := q.Query(ctx, query, tenantID, minMinutes, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime OUTs: %w", err)
	}

	return scanEvents(rows)
}

// ListAnomaliesBetween implements attendance.EventRepository.
func (r *attendanceEventRepository) ListAnomaliesBetween(ctx context.Context, tenantID string, from, to time.Time) ([]attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE tenant_id = $1
		  AND has_anomaly
		  AND ts >= $2 AND ts < $3
		ORDER BY ts
	`

	rows, err := q.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}

	return scanEvents(rows)
}
