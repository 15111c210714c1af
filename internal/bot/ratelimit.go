package bot

import (
	"sync"

	"golang.org/x/time/rate"
)

// UserLimiter 按用户维度限流，防止单个用户把下载队列灌满。
type UserLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserLimiter 构造限流器：perMinute 为每分钟放行数，burst 为突发额度。
func NewUserLimiter(perMinute, burst int) *UserLimiter {
	return &UserLimiter{
		limiters: make(map[int64]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

// Allow 判断该用户当前是否放行。
func (l *UserLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
