package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventreminders/internal/domain"

	"github.com/lib/pq"
)

const registrationColumns = `id, event_id, recipient_id, data, confirmed, created_at`

type registrationRepository struct {
	DB *sql.DB
}

// NewRegistrationRepository returns a domain.RegistrationRepository implemented with Postgres.
// Registration data is stored as JSONB.
func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func scanRegistration(s rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var data []byte
	var confirmed string
	if err := s.Scan(&reg.ID, &reg.EventID, &reg.RecipientID, &data, &confirmed, &reg.CreatedAt); err != nil {
		return nil, err
	}
	reg.Data = map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &reg.Data); err != nil {
			return nil, fmt.Errorf("decode registration data: %w", err)
		}
	}
	reg.Confirmed = domain.Confirmation(confirmed)
	return reg, nil
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	data, err := json.Marshal(reg.Data)
	if err != nil {
		return fmt.Errorf("encode registration data: %w", err)
	}
	query := `
		INSERT INTO registrations (event_id, recipient_id, data, confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query, reg.EventID, reg.RecipientID, data, string(reg.Confirmed), reg.CreatedAt).Scan(&reg.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetByEventAndRecipient(ctx context.Context, eventID, recipientID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND recipient_id = $2`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, eventID, recipientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *registrationRepository) SetConfirmation(ctx context.Context, id string, c domain.Confirmation) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE registrations SET confirmed = $1 WHERE id = $2`, string(c), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the registration. Scheduled notifications cascade.
func (r *registrationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
