package modelapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate            float64                                      // requests per second
	Burst           int                                          // max burst
	KeyFunc         func(r *http.Request) string                 // default: remote IP
	OnLimit         func(w http.ResponseWriter, r *http.Request) // default: 429 problem
	CleanupInterval time.Duration                                // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration                                // remove limiters idle longer than this (default: 5m)
}

// limiterSet holds one token bucket per client key.
type limiterSet struct {
	limit rate.Limit
	burst int
	sweep time.Duration
	idle  time.Duration

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	s := &limiterSet{
		limit:   rate.Limit(cfg.Rate),
		burst:   cfg.Burst,
		sweep:   cfg.CleanupInterval,
		idle:    cfg.MaxIdle,
		clients: make(map[string]*client),
	}
	if s.sweep <= 0 {
		s.sweep = time.Minute
	}
	if s.idle <= 0 {
		s.idle = 5 * time.Minute
	}
	return s
}

// allow takes a token from key's bucket, pruning idle buckets on the way.
func (s *limiterSet) allow(key string) bool {
	now := time.Now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) >= s.sweep {
		for k, c := range s.clients {
			if now.Sub(c.lastSeen) > s.idle {
				delete(s.clients, k)
			}
		}
		s.lastSweep = now
	}
	c, ok := s.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = c
	}
	c.lastSeen = now
	s.mu.Unlock()

	return c.bucket.AllowN(now, 1)
}

// retryAfter is the Retry-After value in whole seconds for a rate.
func retryAfter(rps float64) string {
	if rps <= 0 || rps >= 1 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(1 / rps)))
}

// RateLimit returns middleware that applies per-key rate limiting. Routes
// registered with WithRateLimit get their own instance.
func RateLimit(cfg RateLimitConfig) Middleware {
	keyOf := cfg.KeyFunc
	if keyOf == nil {
		keyOf = clientIP
	}
	onLimit := cfg.OnLimit
	if onLimit == nil {
		onLimit = tooManyRequests
	}

	clients := newLimiterSet(cfg)
	wait := retryAfter(cfg.Rate)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !clients.allow(keyOf(r)) {
				w.Header().Set("Retry-After", wait)
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, r, &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusTooManyRequests),
		Status: http.StatusTooManyRequests,
		Detail: "rate limit exceeded",
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
