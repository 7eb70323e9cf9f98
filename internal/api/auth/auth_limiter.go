package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// AttemptLimiter counts failures per key inside a fixed window. The window
// starts at the first failure and is not extended by later ones.
type AttemptLimiter struct {
	failures    *cache.Cache
	maxAttempts int
	window      time.Duration
}

// NewAttemptLimiter returns a limiter; maxAttempts <= 0 disables it.
func NewAttemptLimiter(maxAttempts int, window time.Duration) *AttemptLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &AttemptLimiter{
		failures:    cache.New(window, window*2),
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *AttemptLimiter) Blocked(key string) bool {
	if l == nil || l.maxAttempts <= 0 {
		return false
	}
	v, found := l.failures.Get(key)
	if !found {
		return false
	}
	return v.(int) >= l.maxAttempts
}

func (l *AttemptLimiter) Fail(key string) {
	if l == nil || l.maxAttempts <= 0 {
		return
	}
	if err := l.failures.Add(key, 1, l.window); err != nil {
		_, _ = l.failures.IncrementInt(key, 1)
	}
}

func (l *AttemptLimiter) Reset(key string) {
	if l == nil {
		return
	}
	l.failures.Delete(key)
}

func loginKey(username string) string    { return "login:" + username }
func recoveryKey(username string) string { return "recovery:" + username }
