package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brightstay/stayflow/internal/domain"
	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) key(clientID string) string {
	return s.namespace + ":" + clientID
}

func (s *RedisStore) Load(ctx context.Context, clientID string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(clientID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupted entry. Drop it and treat the client as signed out.
		logger.WarnContext(ctx, "Discarding malformed session entry", "error", err)
		_ = s.client.Del(ctx, s.key(clientID)).Err()
		return nil, nil
	}

	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, clientID string, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(clientID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context, clientID string) error {
	if err := s.client.Del(ctx, s.key(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
