package middleware

import (
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"podhost/internal/playtrack"
	"podhost/internal/respond"
)

// maxLimiters bounds memory; the table starts over once it is reached.
const maxLimiters = 10000

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimiterMiddleware holds one token bucket per key.
type RateLimiterMiddleware struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	// Rate is the number of events per second.
	rate rate.Limit
	// Burst is the burst size.
	burst  int
	key    KeyFunc
	logger *zap.Logger
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware.
func NewRateLimiterMiddleware(r rate.Limit, b int, key KeyFunc, logger *zap.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    b,
		key:      key,
		logger:   logger,
	}
}

// ByClient keys on the anonymized listener identifier.
func ByClient(r *http.Request) string {
	return playtrack.RequestIdentifier(r)
}

// ByUser keys on the authenticated user, falling back to the client.
func ByUser(r *http.Request) string {
	if user, ok := UserFromContext(r.Context()); ok {
		return "user:" + user.ID
	}
	return ByClient(r)
}

func (rl *RateLimiterMiddleware) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Middleware is the actual middleware handler.
func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(rl.key(r)).Allow() {
			rl.logger.Warn("Rate limit exceeded", zap.String("path", r.URL.Path))
			respond.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
