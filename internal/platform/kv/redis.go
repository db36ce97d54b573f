package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 200

// releaseScript deletes a lock key only while it still holds the caller's token.
const releaseScript = `
	if redis.call('get', KEYS[1]) == ARGV[1] then
		return redis.call('del', KEYS[1])
	end
	return 0
`

// RedisBackend stores every key as a plain Redis string.
// All calls pass through a circuit breaker so a dead Redis fails fast.
type RedisBackend struct {
	client  *redis.Client
	cb      *gobreaker.CircuitBreaker
	release *redis.Script
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend wraps an already connected client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	st := gobreaker.Settings{
		Name:        "RedisBackend",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &RedisBackend{
		client:  client,
		cb:      gobreaker.NewCircuitBreaker(st),
		release: redis.NewScript(releaseScript),
	}
}

// Get returns the value stored under key.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		b, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// a miss is not a backend failure
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		return nil, unavailable("redis get", key, err)
	}
	b, _ := res.([]byte)
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// Set stores value under key without expiry.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, value, 0).Err()
	})
	if err != nil {
		return unavailable("redis set", key, err)
	}
	return nil
}

// Delete removes key.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, key).Err()
	})
	if err != nil {
		return unavailable("redis del", key, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN so large namespaces never block Redis.
func (r *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		seen := make(map[string]struct{})
		var cursor uint64
		for {
			keys, cur, err := r.client.Scan(ctx, cursor, globEscape(prefix)+"*", scanBatch).Result()
			if err != nil {
				return nil, err
			}
			for _, k := range keys {
				seen[k] = struct{}{}
			}
			cursor = cur
			if cursor == 0 {
				break
			}
		}
		out := make([]string, 0, len(seen))
		for k := range seen {
			out = append(out, k)
		}
		sort.Strings(out)
		return out, nil
	})
	if err != nil {
		return nil, unavailable("redis scan", prefix, err)
	}
	return res.([]string), nil
}

// Kind reports KindDurable.
func (r *RedisBackend) Kind() Kind { return KindDurable }

// Name reports "redis".
func (r *RedisBackend) Name() string { return "redis" }

// TryLock takes a lease on key when it is free. The lease expires after ttl
// so a crashed holder cannot wedge other processes.
func (r *RedisBackend) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		return r.client.SetNX(ctx, key, token, ttl).Result()
	})
	if err != nil {
		return false, unavailable("redis setnx", key, err)
	}
	return res.(bool), nil
}

// Unlock releases the lease on key if token still owns it.
func (r *RedisBackend) Unlock(ctx context.Context, key, token string) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.release.Run(ctx, r.client, []string{key}, token).Err()
	})
	if err != nil {
		return unavailable("redis unlock", key, err)
	}
	return nil
}

// globEscape escapes the characters SCAN MATCH treats as wildcards.
func globEscape(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrUnavailable, op, key, err)
}
