package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sbcesar/contractguardian/config"
	"github.com/sbcesar/contractguardian/pkg/logger"
)

// clientWindow is one client's request count in its current window
type clientWindow struct {
	count   int
	started time.Time
}

// RateLimiter is a fixed-window per-client request limiter. Each client runs
// its own window; expired windows are pruned lazily.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	limit     int
	window    time.Duration
	lastPrune time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientWindow),
		limit:     limit,
		window:    window,
		lastPrune: time.Now(),
	}
}

// Allow records a request for the client and reports whether it fits in the
// current window, plus the time left until the window resets when it does not.
func (l *RateLimiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.pruneLocked(now)

	w, ok := l.clients[client]
	if !ok || now.Sub(w.started) > l.window {
		l.clients[client] = &clientWindow{count: 1, started: now}
		return true, 0
	}
	if w.count >= l.limit {
		return false, l.window - now.Sub(w.started)
	}
	w.count++
	return true, 0
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	for client, w := range l.clients {
		if now.Sub(w.started) > l.window {
			delete(l.clients, client)
		}
	}
	l.lastPrune = now
}

// RateLimit bounds request starts per client IP using the server
// configuration. An analysis session counts as a single request no matter how
// long its event stream stays open. Rejected requests get a Retry-After
// header with the seconds left in the client's window.
func RateLimit(cfg *config.ServerConfig) gin.HandlerFunc {
	limit := cfg.RateLimitPerWindow
	if limit <= 0 {
		limit = 100
	}
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, retryIn := limiter.Allow(clientIP)
		if !allowed {
			logger.Warn(c.Request.Context(), "rate limit exceeded", "client_ip", clientIP)

			c.Header("Retry-After", fmt.Sprintf("%d", int(retryIn.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
