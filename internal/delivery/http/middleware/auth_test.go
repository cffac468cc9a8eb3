package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventreminders/internal/delivery/http/helpers"
	"eventreminders/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	subject string
	err     error
}

func (f *fakeTokenVerifier) Verify(_ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.subject, nil
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name            string
		authHeader      string
		verifier        domain.TokenVerifier
		wantStatus      int
		nextCalled      bool
		wantOrganizerID string
	}{
		{
			name:            "valid token sets context and calls next",
			authHeader:      "Bearer valid-token",
			verifier:        &fakeTokenVerifier{subject: "organizer-1"},
			wantStatus:      http.StatusOK,
			nextCalled:      true,
			wantOrganizerID: "organizer-1",
		},
		{
			name:       "missing authorization header",
			verifier:   &fakeTokenVerifier{subject: "organizer-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic scheme",
			authHeader: "Basic abc",
			verifier:   &fakeTokenVerifier{subject: "organizer-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty token after Bearer",
			authHeader: "Bearer ",
			verifier:   &fakeTokenVerifier{subject: "organizer-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "verifier returns error",
			authHeader: "Bearer bad-token",
			verifier:   &fakeTokenVerifier{err: errors.New("token expired")},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var captured string
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				captured, _ = OrganizerIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}
			handler := RequireAuth(tt.verifier, logger)(next)

			req := httptest.NewRequest(http.MethodGet, "http://test/events/1", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			assert.Equal(t, tt.nextCalled, nextCalled, "next handler called")
			if tt.nextCalled {
				assert.Equal(t, tt.wantOrganizerID, captured)
				return
			}
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			require.NotNil(t, envelope.Error)
			assert.Equal(t, helpers.ErrCodeUnauthorized, envelope.Error.Code)
		})
	}
}
