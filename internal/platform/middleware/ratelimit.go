package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/emrapi/internal/platform/auth"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL drops buckets unused for this long. Zero keeps them forever.
	IdleTTL time.Duration
}

// tokenBucket implements a token bucket rate limiter.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastSeen   time.Time
}

func newTokenBucket(rate float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastSeen:   now,
	}
}

// take consumes a token if one is available. When none is, it returns the
// number of seconds until one will be.
func (b *tokenBucket) take(now time.Time) (ok bool, retryAfter int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastSeen).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/b.refillRate) + 1
}

type limiter struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	buckets   map[string]*tokenBucket
	lastSweep time.Time
	now       func() time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{cfg: cfg, buckets: make(map[string]*tokenBucket), now: time.Now}
}

func (l *limiter) bucket(key string) (*tokenBucket, time.Time) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cfg.IdleTTL > 0 && now.Sub(l.lastSweep) > l.cfg.IdleTTL {
		for k, b := range l.buckets {
			b.mu.Lock()
			idle := now.Sub(b.lastSeen) > l.cfg.IdleTTL
			b.mu.Unlock()
			if idle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = newTokenBucket(l.cfg.RequestsPerSecond, l.cfg.BurstSize, now)
		l.buckets[key] = b
	}
	return b, now
}

// RateLimit limits requests per tenant and caller. Authenticated callers are
// keyed by user id, anonymous ones by client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	l := newLimiter(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := auth.UserIDFromContext(c.Request().Context())
			if key == "" {
				key = "ip:" + c.RealIP()
			}
			if tenantID, ok := c.Get("jwt_tenant_id").(string); ok && tenantID != "" {
				key = tenantID + ":" + key
			}

			b, now := l.bucket(key)
			allowed, retryAfter := b.take(now)
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if !allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
