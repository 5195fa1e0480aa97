package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps sessions in a single table:
//
//	CREATE TABLE IF NOT EXISTS sessions (
//	    namespace  TEXT NOT NULL,
//	    client_id  TEXT NOT NULL,
//	    data       JSONB NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (namespace, client_id)
//	);
type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
	ttl       time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, namespace string, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, namespace: namespace, ttl: ttl}
}

func (s *PostgresStore) Load(ctx context.Context, clientID string) (*domain.Session, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM sessions
		 WHERE namespace = $1 AND client_id = $2 AND expires_at > now()`,
		s.namespace, clientID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logger.WarnContext(ctx, "Discarding malformed session entry", "error", err)
		_ = s.Clear(ctx, clientID)
		return nil, nil
	}

	return &sess, nil
}

func (s *PostgresStore) Save(ctx context.Context, clientID string, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (namespace, client_id, data, expires_at)
		 VALUES ($1, $2, $3, now() + $4)
		 ON CONFLICT (namespace, client_id)
		 DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		s.namespace, clientID, data, s.ttl,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, clientID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE namespace = $1 AND client_id = $2`,
		s.namespace, clientID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
