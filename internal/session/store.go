// Package session persists the signed-in account snapshot between requests.
// Sessions are keyed by client ID under a fixed namespace. A missing or
// corrupted entry is treated as signed out, never as an error the caller has
// to handle.
package session

import (
	"context"

	"github.com/brightstay/stayflow/internal/domain"
)

type Store interface {
	// Load returns the stored session for the client, or nil when there is
	// none (including when the stored value cannot be decoded).
	Load(ctx context.Context, clientID string) (*domain.Session, error)
	Save(ctx context.Context, clientID string, s *domain.Session) error
	Clear(ctx context.Context, clientID string) error
}
