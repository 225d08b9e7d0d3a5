package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"cybermaze-gateway/internal/app"
	"cybermaze-gateway/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ResponseCache decorates a live client with a Redis read-through
// cache for the hot list endpoints (challenges, scoreboard, teams,
// users). Each response is stored as one JSON string with a jittered
// TTL; concurrent misses for the same key collapse into a single
// upstream request. Every other operation passes through untouched,
// so the decorator still satisfies the full client contract.
type ResponseCache struct {
	app.Client
	rdb *redis.Client
	ttl time.Duration
	sf  singleflight.Group
	rnd *rand.Rand
}

func NewResponseCache(inner app.Client, rdb *redis.Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		Client: inner,
		rdb:    rdb,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ResponseCache) ListChallenges(ctx context.Context) ([]domain.ChallengeSummary, error) {
	return cachedList(ctx, c, "gateway:challenges", c.Client.ListChallenges)
}

func (c *ResponseCache) GetScoreboard(ctx context.Context) ([]domain.ScoreboardRow, error) {
	return cachedList(ctx, c, "gateway:scoreboard", c.Client.GetScoreboard)
}

func (c *ResponseCache) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	return cachedList(ctx, c, "gateway:users", c.Client.ListUsers)
}

func (c *ResponseCache) ListTeams(ctx context.Context) ([]domain.TeamSummary, error) {
	return cachedList(ctx, c, "gateway:teams", c.Client.ListTeams)
}

// Warm refreshes every cached endpoint; the serve loop schedules this
// periodically so interactive requests mostly hit warm entries.
func (c *ResponseCache) Warm(ctx context.Context) error {
	if err := refresh(ctx, c, "gateway:challenges", c.Client.ListChallenges); err != nil {
		return err
	}
	if err := refresh(ctx, c, "gateway:scoreboard", c.Client.GetScoreboard); err != nil {
		return err
	}
	if err := refresh(ctx, c, "gateway:users", c.Client.ListUsers); err != nil {
		return err
	}
	return refresh(ctx, c, "gateway:teams", c.Client.ListTeams)
}

func refresh[T any](ctx context.Context, c *ResponseCache, key string, fetch func(context.Context) ([]T, error)) error {
	fresh, err := fetch(ctx)
	if err != nil {
		return err
	}
	return c.store(ctx, key, fresh)
}

func (c *ResponseCache) store(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, payload, c.ttlWithJitter()).Err()
}

func cachedList[T any](ctx context.Context, c *ResponseCache, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if cached, ok := lookup[T](ctx, c, key); ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if cached, ok := lookup[T](ctx, c, key); ok {
			return cached, nil
		}
		fresh, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		// Cache writes are best effort; a failed SET must not fail the read.
		_ = c.store(ctx, key, fresh)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]T), nil
}

func lookup[T any](ctx context.Context, c *ResponseCache, key string) ([]T, bool) {
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var cached []T
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, false
	}
	return cached, true
}

func (c *ResponseCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
