package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/models"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

// CacheRepository provides Redis-backed storage for open payment attempts and
// the advisory uniqueness-lookup cache.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

func attemptKey(registrationID string) string {
	return "attempt:" + registrationID
}

func uniquenessKey(field models.UniquenessField, value string) string {
	return fmt.Sprintf("uniq:%s:%s", field, value)
}

// SaveAttempt stores the open payment attempt. The TTL is storage hygiene
// only; an attempt carries no business expiry.
func (r *CacheRepository) SaveAttempt(ctx context.Context, attempt *models.PaymentAttempt, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt %s: %w", attempt.RegistrationID, err)
	}
	if err := r.client.Set(ctx, attemptKey(attempt.RegistrationID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set attempt %s: %w", attempt.RegistrationID, err)
	}
	return nil
}

// FindAttempt loads the open attempt for a registration, if any.
func (r *CacheRepository) FindAttempt(ctx context.Context, registrationID string) (*models.PaymentAttempt, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, attemptKey(registrationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get attempt %s: %w", registrationID, err)
	}
	var attempt models.PaymentAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return nil, fmt.Errorf("unmarshal attempt %s: %w", registrationID, err)
	}
	return &attempt, nil
}

// DeleteAttempt removes the attempt record after confirmation.
func (r *CacheRepository) DeleteAttempt(ctx context.Context, registrationID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, attemptKey(registrationID)).Err(); err != nil {
		return fmt.Errorf("redis del attempt %s: %w", registrationID, err)
	}
	return nil
}

// MarkTaken caches a positive uniqueness lookup. Only taken values are
// cached: a taken value cannot become free, while availability must always be
// re-verified against the directory.
func (r *CacheRepository) MarkTaken(ctx context.Context, field models.UniquenessField, value string, ttl time.Duration) {
	if r.client == nil {
		return
	}
	if err := r.client.Set(ctx, uniquenessKey(field, value), "1", ttl).Err(); err != nil {
		r.logger.Warn("failed to cache uniqueness lookup", zap.String("field", string(field)), zap.Error(err))
	}
}

// IsKnownTaken reports whether the value was recently observed taken.
func (r *CacheRepository) IsKnownTaken(ctx context.Context, field models.UniquenessField, value string) bool {
	if r.client == nil {
		return false
	}
	exists, err := r.client.Exists(ctx, uniquenessKey(field, value)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}
