package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than idleTTL are forgotten.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		r:        r,
		b:        b,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// GetLimiter returns ip's bucket, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	v, ok := i.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(i.r, i.b)}
		i.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Forget drops buckets not used within the idle window and reports how many.
func (i *IPRateLimiter) Forget() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.idleTTL)
	n := 0
	for ip, v := range i.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(i.visitors, ip)
			n++
		}
	}
	return n
}

// RateLimiter limits each client IP to r requests per second with burst b.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return RateLimiterWith(NewIPRateLimiter(r, b))
}

// RateLimiterWith is RateLimiter over an existing limiter set.
func RateLimiterWith(limiter *IPRateLimiter) gin.HandlerFunc {
	var calls int
	var mu sync.Mutex
	return func(c *gin.Context) {
		mu.Lock()
		calls++
		if calls%1000 == 0 {
			limiter.Forget()
		}
		mu.Unlock()

		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
