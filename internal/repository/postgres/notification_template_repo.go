package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventreminders/internal/domain"

	"github.com/lib/pq"
)

const templateColumns = `id, name, time_before_event_minutes, absolute_date_time, message_template, created_at`

type notificationTemplateRepository struct {
	DB *sql.DB
}

// NewNotificationTemplateRepository returns a domain.NotificationTemplateRepository implemented with Postgres.
func NewNotificationTemplateRepository(db *sql.DB) domain.NotificationTemplateRepository {
	return &notificationTemplateRepository{DB: db}
}

func scanTemplate(s rowScanner) (*domain.NotificationTemplate, error) {
	t := &domain.NotificationTemplate{}
	var minutes sql.NullInt64
	var absolute sql.NullTime
	if err := s.Scan(&t.ID, &t.Name, &minutes, &absolute, &t.MessageTemplate, &t.CreatedAt); err != nil {
		return nil, err
	}
	if minutes.Valid {
		m := int(minutes.Int64)
		t.TimeBeforeEventMinutes = &m
	}
	if absolute.Valid {
		a := absolute.Time.UTC()
		t.AbsoluteDateTime = &a
	}
	return t, nil
}

func (r *notificationTemplateRepository) Create(ctx context.Context, t *domain.NotificationTemplate) error {
	query := `
		INSERT INTO notification_templates (name, time_before_event_minutes, absolute_date_time, message_template, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		t.Name, t.TimeBeforeEventMinutes, t.AbsoluteDateTime, t.MessageTemplate, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *notificationTemplateRepository) GetByID(ctx context.Context, id string) (*domain.NotificationTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates WHERE id = $1`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns one page of templates ordered by name, plus the total count.
func (r *notificationTemplateRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.NotificationTemplate, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_templates`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + templateColumns + ` FROM notification_templates ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	templates := make([]*domain.NotificationTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}
