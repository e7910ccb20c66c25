package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	limiters   map[string]*limiterEntry
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	idle       time.Duration
	maxClients int
	now        func() time.Time
	logger     *logrus.Logger
}

// NewRateLimiter allows perMinute attempts per IP with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int, logger *logrus.Logger) *RateLimiter {
	limit := rate.Inf
	if burst < 1 {
		burst = 1
	}
	// a bucket untouched for idle is full again and can be forgotten
	var idle time.Duration
	if perMinute > 0 {
		interval := time.Minute / time.Duration(perMinute)
		limit = rate.Every(interval)
		idle = interval * time.Duration(burst)
	}
	return &RateLimiter{
		limiters:   make(map[string]*limiterEntry),
		rate:       limit,
		burst:      burst,
		idle:       idle,
		maxClients: maxTrackedClients,
		now:        time.Now,
		logger:     logger,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= rl.maxClients {
			rl.evict(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evict drops refilled buckets, then the least recently seen one if the map is still full.
func (rl *RateLimiter) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) >= rl.idle {
			delete(rl.limiters, key)
			continue
		}
		if oldestKey == "" || entry.lastSeen.Before(oldest) {
			oldestKey, oldest = key, entry.lastSeen
		}
	}
	if len(rl.limiters) >= rl.maxClients && oldestKey != "" {
		delete(rl.limiters, oldestKey)
	}
}

// Allow reports whether the client key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Limit aborts over-limit requests by running onLimit instead of the route handler.
// Clients are keyed by gin's ClientIP, which only honours forwarding headers
// from the engine's trusted proxies.
func (rl *RateLimiter) Limit(onLimit gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !rl.Allow(key) {
			rl.logger.WithFields(logrus.Fields{
				"ip":         key,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(ContextRequestID),
			}).Warn("rate limit exceeded")
			onLimit(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
