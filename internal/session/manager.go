package session

import (
	"context"
	"fmt"

	"github.com/brightstay/stayflow/internal/domain"
)

// Manager wraps a Store with the account lifecycle operations the workflows
// need. It never talks to the backend itself; callers hand it the account
// snapshot the backend returned.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) Current(ctx context.Context, clientID string) (*domain.Session, error) {
	return m.store.Load(ctx, clientID)
}

func (m *Manager) SignIn(ctx context.Context, clientID string, sess *domain.Session) error {
	if sess == nil {
		return fmt.Errorf("cannot sign in a nil session")
	}
	return m.store.Save(ctx, clientID, sess)
}

func (m *Manager) SignOut(ctx context.Context, clientID string) error {
	return m.store.Clear(ctx, clientID)
}

// MarkEmailVerified flips the verification flag on the stored snapshot. A
// signed-out client is a no-op.
func (m *Manager) MarkEmailVerified(ctx context.Context, clientID string) error {
	sess, err := m.store.Load(ctx, clientID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	sess.IsEmailVerified = true
	return m.store.Save(ctx, clientID, sess)
}
