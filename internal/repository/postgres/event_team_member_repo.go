package postgres

import (
	"context"
	"database/sql"

	"eventreminders/internal/domain"
)

type eventTeamMemberRepository struct {
	DB *sql.DB
}

func NewEventTeamMemberRepository(db *sql.DB) domain.EventTeamMemberRepository {
	return &eventTeamMemberRepository{
		DB: db,
	}
}

func (r *eventTeamMemberRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventTeamMember, error) {
	query := `
		SELECT event_id, recipient_id, can_send_notifications
		FROM event_team_members
		WHERE event_id = $1
		ORDER BY recipient_id
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*domain.EventTeamMember, 0)
	for rows.Next() {
		m := &domain.EventTeamMember{}
		if err := rows.Scan(&m.EventID, &m.RecipientID, &m.CanSendNotifications); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
