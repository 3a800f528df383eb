package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// clientIdleTTL is how long an idle client's bucket is kept.
	clientIdleTTL = 10 * time.Minute
	sweepInterval = time.Minute
	maxClients    = 10000
)

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than clientIdleTTL are dropped, and at most maxClients are held.
type RateLimiter struct {
	mu        sync.Mutex
	r         rate.Limit
	burst     int
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		r:       rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweep(now)
	}
	cl, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) >= maxClients {
			rl.evictOldest()
		}
		cl = &client{lim: rate.NewLimiter(rl.r, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.lim
}

// sweep drops clients idle for longer than clientIdleTTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > clientIdleTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) evictOldest() {
	var (
		oldest string
		seen   time.Time
		found  bool
	)
	for key, cl := range rl.clients {
		if !found || cl.lastSeen.Before(seen) {
			oldest, seen, found = key, cl.lastSeen, true
		}
	}
	if found {
		delete(rl.clients, oldest)
	}
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "too many requests, slow down",
				},
			})
			return
		}
		c.Next()
	}
}
