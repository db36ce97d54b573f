package ratelimiter

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter は、キー（ユーザーIDなど）ごとに interval あたり limit 回まで操作を許可します。
// 上限に達した呼び出しは待機せず、即座に拒否されます。
type RateLimiter struct {
	limit    int           // interval あたりの上限
	interval time.Duration // どの単位で回復するか

	mu       sync.Mutex
	limiters map[string]*entry
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。
// limit が0以下の場合、すべての操作を許可します。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		interval: interval,
		limiters: make(map[string]*entry),
		now:      time.Now,
	}
}

// Allow は key の操作を1回分消費できるかを返します。
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 || rl.interval <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evict(now)

	e, ok := rl.limiters[key]
	if !ok {
		every := rl.interval / time.Duration(rl.limit)
		e = &entry{limiter: rate.NewLimiter(rate.Every(every), rl.limit)}
		rl.limiters[key] = e
	}
	e.lastSeen = now

	if !e.limiter.AllowN(now, 1) {
		slog.Warn("rate limit hit", "key", key, "limit", rl.limit, "interval", rl.interval)
		return false
	}
	return true
}

// evict は interval 以上使われていないキーを破棄します。破棄されたキーはバーストが満タンに戻っています。
func (rl *RateLimiter) evict(now time.Time) {
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) >= rl.interval {
			delete(rl.limiters, key)
		}
	}
}
