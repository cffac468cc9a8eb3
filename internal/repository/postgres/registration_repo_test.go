package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"eventreminders/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var registrationRowColumns = []string{"id", "event_id", "recipient_id", "data", "confirmed", "created_at"}

func TestRegistrationRepository_Create(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO registrations \(event_id, recipient_id, data, confirmed, created_at\)`).
					WithArgs("ev-1", "chat-1", []byte(`{"name":"Ann"}`), "", created).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-1"))
			},
			wantID: "reg-1",
		},
		{
			name: "already registered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO registrations`).WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: domain.ErrDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			reg := domain.NewRegistration("ev-1", "chat-1", map[string]string{"name": "Ann"}, created)
			err = NewRegistrationRepository(db).Create(ctx, reg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, reg.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_Get(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	want := &domain.Registration{
		ID: "reg-1", EventID: "ev-1", RecipientID: "chat-1",
		Data: map[string]string{"name": "Ann"}, Confirmed: domain.ConfirmationConfirmed, CreatedAt: created,
	}

	t.Run("by id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(`SELECT id, event_id, recipient_id, data, confirmed, created_at FROM registrations WHERE id = \$1`).
			WithArgs("reg-1").
			WillReturnRows(sqlmock.NewRows(registrationRowColumns).
				AddRow("reg-1", "ev-1", "chat-1", []byte(`{"name":"Ann"}`), "confirmed", created))

		got, err := NewRegistrationRepository(db).GetByID(ctx, "reg-1")
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("by event and recipient", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(`FROM registrations WHERE event_id = \$1 AND recipient_id = \$2`).
			WithArgs("ev-1", "chat-1").
			WillReturnRows(sqlmock.NewRows(registrationRowColumns).
				AddRow("reg-1", "ev-1", "chat-1", []byte(`{"name":"Ann"}`), "confirmed", created))

		got, err := NewRegistrationRepository(db).GetByEventAndRecipient(ctx, "ev-1", "chat-1")
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(`FROM registrations WHERE id`).WithArgs("reg-x").WillReturnError(sql.ErrNoRows)

		_, err = NewRegistrationRepository(db).GetByID(ctx, "reg-x")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRegistrationRepository_ListByEventID(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM registrations WHERE event_id = \$1 ORDER BY created_at, id`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow("reg-1", "ev-1", "chat-1", []byte(`{}`), "", created).
			AddRow("reg-2", "ev-1", "chat-2", []byte(`{"phone":"123"}`), "declined", created))

	got, err := NewRegistrationRepository(db).ListByEventID(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, domain.ConfirmationPending, got[0].Confirmed)
	require.Equal(t, map[string]string{}, got[0].Data)
	require.Equal(t, "123", got[1].Data["phone"])
	require.Equal(t, domain.ConfirmationDeclined, got[1].Confirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_SetConfirmationAndDelete(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(`UPDATE registrations SET confirmed = \$1 WHERE id = \$2`).
		WithArgs("confirmed", "reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetConfirmation(ctx, "reg-1", domain.ConfirmationConfirmed))

	mock.ExpectExec(`UPDATE registrations`).
		WithArgs("declined", "reg-x").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SetConfirmation(ctx, "reg-x", domain.ConfirmationDeclined), domain.ErrNotFound)

	mock.ExpectExec(`DELETE FROM registrations WHERE id = \$1`).
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, "reg-1"))

	require.NoError(t, mock.ExpectationsWereMet())
}
