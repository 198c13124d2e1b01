package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/duynhne/user-auth/internal/core/domain"
	"github.com/duynhne/user-auth/internal/logger"
)

// SessionKeyPrefix namespaces session records apart from reset tokens.
const SessionKeyPrefix = "sess:"

// RedisSessionRepository implements domain.SessionRepository using Redis.
// Records are JSON documents whose TTL is set on write and never refreshed by reads.
type RedisSessionRepository struct {
	client redis.Cmdable
}

// NewSessionRepository creates a new RedisSessionRepository.
func NewSessionRepository(client redis.Cmdable) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// Get returns the session record for id.
// Returns (nil, nil) when the session does not exist or has expired. A record
// that cannot be decoded is deleted and reported as missing.
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*domain.SessionData, error) {
	raw, err := r.client.Get(ctx, SessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "get session").Wrap(err)
	}

	var data domain.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Discarding undecodable session record")
		if err := r.client.Del(ctx, SessionKeyPrefix+id).Err(); err != nil {
			return nil, oops.Code("SESSION_DESTROY_FAILED").With("operation", "discard corrupt session").Wrap(err)
		}
		return nil, nil
	}
	return &data, nil
}

// Set writes the session record with an absolute lifetime of ttl.
func (r *RedisSessionRepository) Set(ctx context.Context, id string, data domain.SessionData, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return oops.Code("SESSION_ENCODE_FAILED").With("operation", "encode session").Wrap(err)
	}
	if err := r.client.Set(ctx, SessionKeyPrefix+id, raw, ttl).Err(); err != nil {
		return oops.Code("SESSION_SET_FAILED").With("operation", "set session").Wrap(err)
	}
	return nil
}

// Destroy deletes the session record.
func (r *RedisSessionRepository) Destroy(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, SessionKeyPrefix+id).Err(); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").With("operation", "destroy session").Wrap(err)
	}
	return nil
}
