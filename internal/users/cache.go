package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
)

const cacheName = "users"

// CachedRepo is a read-through redis cache in front of a users repo. Single
// profile reads are cached, writes and deletes drop the cached entry. Redis
// failures are logged and the repo is used directly.
type CachedRepo struct {
	repo        usersRepo
	redisClient *redis.Client
	ttl         time.Duration
	metrics     *metrics.Manager
}

func NewCachedRepo(
	repo usersRepo,
	redisClient *redis.Client,
	ttl time.Duration,
	metricsManager *metrics.Manager,
) *CachedRepo {
	return &CachedRepo{
		repo:        repo,
		redisClient: redisClient,
		ttl:         ttl,
		metrics:     metricsManager,
	}
}

func userCacheKey(id string) string {
	return fmt.Sprintf("user::%s", id)
}

func (c *CachedRepo) Get(ctx context.Context, id string) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cache.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	key := userCacheKey(id)
	cached, err := c.redisClient.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		c.metrics.ObserveCacheLookup(cacheName, metrics.CacheMiss)
	case err != nil:
		log.Errorf("failed to get user [%s] from redis: %s", id, err)
		c.metrics.ObserveCacheLookup(cacheName, metrics.CacheError)
	default:
		user := map[string]any{}
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			c.metrics.ObserveCacheLookup(cacheName, metrics.CacheHit)
			log.Tracef("user [%s] found in redis cache", id)
			return user, nil
		}
		log.Errorf("failed to unmarshal cached user [%s]: %s", id, err)
		c.metrics.ObserveCacheLookup(cacheName, metrics.CacheError)
	}

	user, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal user [%s] for redis: %s", id, err)
		return user, nil
	}
	if err := c.redisClient.Set(ctx, key, string(userJSON), c.ttl).Err(); err != nil {
		log.Errorf("failed to cache user [%s] in redis: %s", id, err)
	}

	return user, nil
}

func (c *CachedRepo) List(ctx context.Context) ([]map[string]any, error) {
	return c.repo.List(ctx)
}

func (c *CachedRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return c.repo.ExistsByPhone(ctx, phone)
}

func (c *CachedRepo) Create(ctx context.Context, id string, data map[string]any) error {
	if err := c.repo.Create(ctx, id, data); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedRepo) Update(ctx context.Context, id string, data map[string]any) error {
	if err := c.repo.Update(ctx, id, data); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedRepo) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedRepo) invalidate(ctx context.Context, id string) {
	if err := c.redisClient.Del(ctx, userCacheKey(id)).Err(); err != nil {
		log.Errorf("failed to drop cached user [%s]: %s", id, err)
	}
}
