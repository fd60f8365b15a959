package postgres

import (
	"context"
	"fmt"
	"time"

	"photobooth-reconcile/internal/domain/ports/repository"
	"photobooth-reconcile/internal/infra/metrics"
	red "photobooth-reconcile/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator caches email -> user id lookups. Compensation
// exports repeat the same customers, so the hit rate pays for itself on any
// sizable batch. Misses are not cached; an unresolved candidate should be
// retried after the user registers.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *userRepoCacheDecorator) FindIDByEmail(ctx context.Context, email string) (string, error) {
	key := fmt.Sprintf("user:email:%s", email)
	if id, err := d.cache.Get(ctx, key); err == nil && id != "" {
		metrics.IncCacheRequest("user_email", "hit")
		return id, nil
	}

	metrics.IncCacheRequest("user_email", "miss")
	id, err := d.inner.FindIDByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	_ = d.cache.Set(ctx, key, id, d.ttl)
	return id, nil
}
