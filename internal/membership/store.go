package membership

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"gangway/pkg/cache"
)

// Store is the boolean paid-status cache consumed by the Verifier. Entries
// expire passively after their TTL; nothing ever invalidates them explicitly.
type Store interface {
	// GetBool returns the cached judgment for key. ok=false means a miss.
	GetBool(ctx context.Context, key string) (val bool, ok bool, err error)
	// SetBool stores a judgment with an explicit TTL.
	SetBool(ctx context.Context, key string, val bool, ttl time.Duration) error
}

// MemoryStore is the in-process store, suitable for single-instance
// deployments. It is a thin wrapper over the shared TTL cache.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates a process-wide membership cache.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		c: cache.New(cache.Options{MaxEntries: maxEntries}, cache.MetricsHooks{}),
	}
}

func (s *MemoryStore) GetBool(_ context.Context, key string) (bool, bool, error) {
	v, ok := s.c.Peek(key)
	if !ok {
		return false, false, nil
	}
	b, ok := v.(bool)
	return b, ok, nil
}

func (s *MemoryStore) SetBool(_ context.Context, key string, val bool, ttl time.Duration) error {
	s.c.Set(key, val, ttl)
	return nil
}

// RedisStore shares the membership cache across instances. Values are "1"
// and "0" with a per-key TTL; a missing key is a miss, never an error.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisStore(rdb goredis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "membership:"}
}

func (s *RedisStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, false, nil
		}
		return false, false, err
	}
	return v == "1", true, nil
}

func (s *RedisStore) SetBool(ctx context.Context, key string, val bool, ttl time.Duration) error {
	v := "0"
	if val {
		v = "1"
	}
	return s.rdb.Set(ctx, s.prefix+key, v, ttl).Err()
}
