package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventreminders/internal/domain"
)

const scheduledColumns = `id, event_id, registration_id, kind, scheduled_time, sent, sent_at, created_at`

type scheduledNotificationRepository struct {
	DB *sql.DB
}

// NewScheduledNotificationRepository returns a domain.ScheduledNotificationRepository implemented
// with Postgres. Uniqueness of (event_id, registration_id, scheduled_time) is enforced by the table.
func NewScheduledNotificationRepository(db *sql.DB) domain.ScheduledNotificationRepository {
	return &scheduledNotificationRepository{DB: db}
}

func scanScheduled(s rowScanner) (*domain.ScheduledNotification, error) {
	n := &domain.ScheduledNotification{}
	var kind string
	var sentAt sql.NullTime
	if err := s.Scan(&n.ID, &n.EventID, &n.RegistrationID, &kind, &n.ScheduledTime, &n.Sent, &sentAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Kind = domain.NotificationKind(kind)
	n.ScheduledTime = n.ScheduledTime.UTC()
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		n.SentAt = &t
	}
	return n, nil
}

func (r *scheduledNotificationRepository) Create(ctx context.Context, n *domain.ScheduledNotification) (bool, error) {
	query := `
		INSERT INTO scheduled_notifications (event_id, registration_id, kind, scheduled_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, registration_id, scheduled_time) DO NOTHING
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, query, n.EventID, n.RegistrationID, string(n.Kind), n.ScheduledTime.UTC()).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListDue returns unsent notifications whose scheduled time is at or before now.
func (r *scheduledNotificationRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.ScheduledNotification, error) {
	query := `
		SELECT ` + scheduledColumns + `
		FROM scheduled_notifications
		WHERE sent = FALSE AND scheduled_time <= $1
		ORDER BY scheduled_time, id
	`
	return r.list(ctx, query, now.UTC())
}

func (r *scheduledNotificationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.ScheduledNotification, error) {
	query := `
		SELECT ` + scheduledColumns + `
		FROM scheduled_notifications
		WHERE event_id = $1
		ORDER BY scheduled_time, registration_id
	`
	return r.list(ctx, query, eventID)
}

func (r *scheduledNotificationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.ScheduledNotification, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.ScheduledNotification, 0)
	for rows.Next() {
		n, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *scheduledNotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE scheduled_notifications SET sent = TRUE, sent_at = $1 WHERE id = $2`, sentAt.UTC(), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *scheduledNotificationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM scheduled_notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteUpcomingByEventID removes the event's unsent notifications that are not yet due
// and reports how many went.
func (r *scheduledNotificationRepository) DeleteUpcomingByEventID(ctx context.Context, eventID string, after time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM scheduled_notifications WHERE event_id = $1 AND sent = FALSE AND scheduled_time > $2`,
		eventID, after.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
