package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	rediskey "production_queue/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// luaRateLimit is an atomic Redis sliding window.
// KEYS[1]=window key, ARGV[1]=now (ms), ARGV[2]=window start (ms),
// ARGV[3]=window seconds, ARGV[4]=member, ARGV[5]=limit.
// Returns the request count inside the window, or -1 when over the limit.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// RedisRateLimit allows limit requests per window for each caller, keyed by
// the authenticated user id or else the client IP. When Redis fails it
// falls back to an in-process token bucket with the same budget rather than
// letting every request through.
func RedisRateLimit(rdb *rd.Client, limit int, window time.Duration, prefix string, log zerolog.Logger) gin.HandlerFunc {
	fallback := newLocalLimiter(limit, window)
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if uid := UserID(c); uid != "" {
			subject = "user:" + uid
		}
		key := rediskey.RateLimitKey(prefix, subject)

		now := time.Now()
		nowMs := now.UnixMilli()
		windowStart := nowMs - window.Milliseconds()
		member := fmt.Sprintf("%d-%d", nowMs, now.UnixNano())
		windowSec := int64(window.Seconds())
		if windowSec < 1 {
			windowSec = 1
		}

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			nowMs, windowStart, windowSec, member, limit).Int()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limit redis failed, using local limiter")
			if !fallback.allow(key) {
				tooMany(c)
				return
			}
			c.Next()
			return
		}
		if res < 0 {
			tooMany(c)
			return
		}
		c.Header("X-RateLimit-Limit", fmt.Sprint(limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprint(limit-res))
		c.Next()
	}
}

func tooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "Rate limit exceeded. Please try again later.",
	})
}

// localLimiter keeps one token bucket per key. A bucket idle for a whole
// window is full again, so it is dropped on the next sweep.
type localLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	limiters  map[string]*localEntry
}

type localEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		limit:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
		window:   window,
		limiters: make(map[string]*localEntry),
	}
}

func (l *localLimiter) allow(key string) bool {
	return l.allowAt(key, time.Now())
}

func (l *localLimiter) allowAt(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) >= l.window {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}
