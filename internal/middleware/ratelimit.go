package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/pkg/httputil"
)

// RateLimiterConfig bounds requests per client. Idle clients are forgotten
// after IdleTTL.
type RateLimiterConfig struct {
	Rate    rate.Limit
	Burst   int
	IdleTTL time.Duration
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *gocache.Cache
	keyFunc  func(*gin.Context) string
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		config:   config,
		limiters: gocache.New(config.IdleTTL, 2*config.IdleTTL),
		keyFunc:  clientKey,
	}
}

// clientKey prefers the authenticated user and falls back to the client IP.
func clientKey(c *gin.Context) string {
	if id, ok := UserID(c); ok {
		return "user:" + formatID(id)
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Get(key); ok {
		rl.limiters.SetDefault(key, l)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	// Add fails when a concurrent request created the bucket first.
	if err := rl.limiters.Add(key, l, gocache.DefaultExpiration); err != nil {
		if existing, ok := rl.limiters.Get(key); ok {
			return existing.(*rate.Limiter)
		}
	}
	return l
}

// RateLimit rejects requests over the client's budget with 429.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(rl.keyFunc(c)).Allow() {
			c.Header("Retry-After", "1")
			httputil.AbortWithStatus(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
