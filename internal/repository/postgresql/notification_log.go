package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/notification"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationLogRepository struct {
	db *database.DB
}

func NewNotificationLogRepository(db *database.DB) notification.LogRepository {
	return &notificationLogRepository{db: db}
}

// InsertIfAbsent implements notification.LogRepository. The dedup key is a
// unique index on (tenant_id, employee_id, session_date, slot_key, kind), so
// the existence check and the write are one statement: concurrent sweeps race
// on the index, not on a read-then-write.
func (r *notificationLogRepository) InsertIfAbsent(ctx context.Context, log notification.Log) (bool, error) {
	q := GetQuerier(ctx, r.db)

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notification_logs (
			id, tenant_id, employee_id, session_date, slot_key, kind, escalation_level, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, employee_id, session_date, slot_key, kind) DO NOTHING
		RETURNING id
	`

	var insertedID string
	err := q.QueryRow(ctx, query,
		log.ID,
		log.TenantID,
		log.EmployeeID,
		log.SessionDate.Format("2006-01-02"),
		log.SlotKey,
		log.Kind,
		log.EscalationLevel,
		log.SentAt,
	).Scan(&insertedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert notification log: %w", err)
	}

	return true, nil
}
