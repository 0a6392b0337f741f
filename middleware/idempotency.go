// middleware/idempotency.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CachedResponse is a stored reply to a request carrying an Idempotency-Key.
// Pending marks a key whose first request is still running.
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Pending     bool   `json:"pending,omitempty"`
}

// ResponseCache stores replies by idempotency key. Get returns nil, nil on
// a miss. Reserve stores a pending marker only if the key is absent and
// reports whether it did; Release drops the key.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// pendingTTL bounds how long a crashed request can hold its key.
const pendingTTL = 2 * time.Minute

// Idempotency replays the stored response when a request repeats its
// Idempotency-Key, so a retried credit or redemption is applied once.
// The key is reserved before the handler runs; a duplicate that arrives
// while the first is in flight gets 409. Server errors release the key so
// the client may retry.
func Idempotency(cache ResponseCache, ttl time.Duration, log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" || c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			return c.Next()
		}
		scoped := c.Method() + " " + c.Path() + " " + key
		ctx := c.UserContext()

		reserved, err := cache.Reserve(ctx, scoped, pendingTTL)
		if err != nil {
			log.Errorw("❌ Idempotency reservation failed, serving without replay", "key", key, "error", err)
			return c.Next()
		}
		if !reserved {
			return replay(c, cache, scoped, key, log)
		}

		if err := c.Next(); err != nil {
			release(ctx, cache, scoped, key, log)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			release(ctx, cache, scoped, key, log)
			return nil
		}
		resp := CachedResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := cache.Set(ctx, scoped, resp, ttl); err != nil {
			log.Errorw("❌ Failed to save idempotency key", "key", key, "error", err)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, cache ResponseCache, scoped, key string, log *zap.SugaredLogger) error {
	cached, err := cache.Get(c.UserContext(), scoped)
	if err != nil {
		log.Errorw("❌ Idempotency lookup failed", "key", key, "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "idempotency store unavailable, retry later",
		})
	}
	if cached == nil || cached.Pending {
		log.Infow("⏳ Duplicate request while the first is in flight", "key", key)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a request with this Idempotency-Key is still in progress",
		})
	}

	log.Infow("🛑 Idempotency hit, replaying response", "key", key)
	c.Set("X-Idempotency-Hit", "true")
	if cached.ContentType != "" {
		c.Set(fiber.HeaderContentType, cached.ContentType)
	}
	return c.Status(cached.Status).Send(cached.Body)
}

func release(ctx context.Context, cache ResponseCache, scoped, key string, log *zap.SugaredLogger) {
	if err := cache.Release(ctx, scoped); err != nil {
		log.Errorw("❌ Failed to release idempotency key", "key", key, "error", err)
	}
}

// RedisResponseCache keeps idempotent replies in Redis.
type RedisResponseCache struct {
	Client *redis.Client
	Prefix string
}

func NewRedisResponseCache(client *redis.Client) *RedisResponseCache {
	return &RedisResponseCache{Client: client, Prefix: "idem:"}
}

func (r *RedisResponseCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	raw, err := r.Client.Get(ctx, r.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *RedisResponseCache) Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, r.Prefix+key, raw, ttl).Err()
}

func (r *RedisResponseCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(CachedResponse{Pending: true})
	if err != nil {
		return false, err
	}
	return r.Client.SetNX(ctx, r.Prefix+key, raw, ttl).Result()
}

func (r *RedisResponseCache) Release(ctx context.Context, key string) error {
	return r.Client.Del(ctx, r.Prefix+key).Err()
}

// MemoryResponseCache is the single-process fallback when REDIS_URL is unset.
type MemoryResponseCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	resp    CachedResponse
	expires time.Time
}

func NewMemoryResponseCache() *MemoryResponseCache {
	return &MemoryResponseCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryResponseCache) Get(_ context.Context, key string) (*CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	resp := e.resp
	return &resp, nil
}

func (m *MemoryResponseCache) Set(_ context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{resp: resp, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryResponseCache) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && !m.now().After(e.expires) {
		return false, nil
	}
	m.entries[key] = memoryEntry{resp: CachedResponse{Pending: true}, expires: m.now().Add(ttl)}
	return true, nil
}

func (m *MemoryResponseCache) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
