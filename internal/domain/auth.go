package domain

import "time"

// TokenIssuer issues admin API tokens (e.g. JWT).
type TokenIssuer interface {
	Issue(subject string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier validates a token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}
