package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter caps requests per client IP in fixed windows. Paint strokes
// arrive one tile per request, so the paint endpoint is the one it guards.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	span    time.Duration
	now     func() time.Time
}

type window struct {
	opened time.Time
	used   int
}

// NewRateLimiter allows limit requests per client in each span.
func NewRateLimiter(limit int, span time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		span:    span,
		now:     time.Now,
	}
}

// Allow counts one request from ip and reports whether it fits the window.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.forget(now)

	w := rl.clients[ip]
	if w == nil || now.Sub(w.opened) >= rl.span {
		w = &window{opened: now}
		rl.clients[ip] = w
	}
	if w.used >= rl.limit {
		return false
	}
	w.used++
	return true
}

// RetryAfter is the number of whole seconds, rounded up, until ip's window
// reopens.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.clients[ip]
	if w == nil {
		return 0
	}
	left := w.opened.Add(rl.span).Sub(rl.now())
	if left < 0 {
		return 0
	}
	return int(left/time.Second) + 1
}

// forget drops clients idle for more than two spans. Caller holds mu.
func (rl *RateLimiter) forget(now time.Time) {
	for ip, w := range rl.clients {
		if now.Sub(w.opened) > 2*rl.span {
			delete(rl.clients, ip)
		}
	}
}

// RateLimit answers 429 with a Retry-After header once a client is over rl.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if rl.Allow(ip) {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many paint requests"})
	}
}
