package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventreminders/internal/domain"

	"github.com/lib/pq"
)

const ruleColumns = `id, event_id, template_id, custom_time_minutes, enabled, include_buttons, recipient_ids`

type notificationRuleRepository struct {
	DB *sql.DB
}

// NewNotificationRuleRepository returns a domain.NotificationRuleRepository implemented with Postgres.
// Explicit organizer recipients are stored as a TEXT[]; NULL means use the defaults.
func NewNotificationRuleRepository(db *sql.DB) domain.NotificationRuleRepository {
	return &notificationRuleRepository{DB: db}
}

func scanRule(s rowScanner) (*domain.NotificationRule, error) {
	rule := &domain.NotificationRule{}
	var templateID sql.NullString
	var custom sql.NullInt64
	var recipients pq.StringArray
	if err := s.Scan(&rule.ID, &rule.EventID, &templateID, &custom, &rule.Enabled, &rule.IncludeButtons, &recipients); err != nil {
		return nil, err
	}
	if templateID.Valid {
		rule.TemplateID = &templateID.String
	}
	if custom.Valid {
		m := int(custom.Int64)
		rule.CustomTimeMinutes = &m
	}
	if len(recipients) > 0 {
		rule.RecipientIDs = []string(recipients)
	}
	return rule, nil
}

// recipientArray maps an empty list to NULL.
func recipientArray(ids []string) any {
	if len(ids) == 0 {
		return nil
	}
	return pq.StringArray(ids)
}

func (r *notificationRuleRepository) Create(ctx context.Context, rule *domain.NotificationRule) error {
	query := `
		INSERT INTO notification_rules (event_id, template_id, custom_time_minutes, enabled, include_buttons, recipient_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		rule.EventID, rule.TemplateID, rule.CustomTimeMinutes, rule.Enabled, rule.IncludeButtons, recipientArray(rule.RecipientIDs),
	).Scan(&rule.ID)
}

func (r *notificationRuleRepository) GetByID(ctx context.Context, id string) (*domain.NotificationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM notification_rules WHERE id = $1`
	rule, err := scanRule(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (r *notificationRuleRepository) Update(ctx context.Context, rule *domain.NotificationRule) error {
	query := `
		UPDATE notification_rules
		SET template_id = $1, custom_time_minutes = $2, enabled = $3, include_buttons = $4, recipient_ids = $5
		WHERE id = $6
	`
	result, err := r.DB.ExecContext(ctx, query,
		rule.TemplateID, rule.CustomTimeMinutes, rule.Enabled, rule.IncludeButtons, recipientArray(rule.RecipientIDs), rule.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListEnabledByEventID returns the event's enabled rules oldest first.
func (r *notificationRuleRepository) ListEnabledByEventID(ctx context.Context, eventID string) ([]*domain.NotificationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM notification_rules WHERE event_id = $1 AND enabled ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rules := make([]*domain.NotificationRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
