// Package ratelimit provides per-caller token bucket rate limiting
// middleware with per-endpoint overrides.
package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/smorand/slides-content-api/internal/cache"
	"github.com/smorand/slides-content-api/internal/middleware"
)

// Limit is a token bucket rate and burst.
type Limit struct {
	RequestsPerSecond float64
	BurstSize         int
}

// Config holds rate limiter configuration.
type Config struct {
	Default Limit
	// Endpoints overrides the default limit per URL path.
	Endpoints map[string]Limit
	// KeyFunc identifies the caller (default: API key, else client IP).
	KeyFunc func(r *http.Request) string
	// MaxClients bounds the number of tracked callers (default: 10000).
	MaxClients int
	// IdleTTL drops a caller's bucket after this long without requests.
	IdleTTL time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Default:    Limit{RequestsPerSecond: 10, BurstSize: 20},
		MaxClients: 10000,
		IdleTTL:    10 * time.Minute,
		Logger:     slog.Default(),
	}
}

// Limiter applies a token bucket per caller and endpoint.
type Limiter struct {
	config  Config
	buckets *cache.LRU[*rate.Limiter]
}

// New creates a rate limiter.
func New(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.Default.RequestsPerSecond <= 0 {
		config.Default.RequestsPerSecond = defaults.Default.RequestsPerSecond
	}
	if config.Default.BurstSize <= 0 {
		config.Default.BurstSize = defaults.Default.BurstSize
	}
	if config.KeyFunc == nil {
		config.KeyFunc = CallerKey
	}
	if config.MaxClients <= 0 {
		config.MaxClients = defaults.MaxClients
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Limiter{
		config: config,
		buckets: cache.New[*rate.Limiter](cache.Config{
			Name:       "rate_limits",
			MaxEntries: config.MaxClients,
			TTL:        config.IdleTTL,
			Logger:     config.Logger,
		}),
	}
}

// CallerKey identifies a caller by API key when authenticated, otherwise by
// client IP.
func CallerKey(r *http.Request) string {
	if key := middleware.GetAPIKey(r.Context()); key != "" {
		return "key:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// limitFor returns the limit for a path.
func (l *Limiter) limitFor(path string) Limit {
	if limit, ok := l.config.Endpoints[path]; ok && limit.RequestsPerSecond > 0 && limit.BurstSize > 0 {
		return limit
	}
	return l.config.Default
}

// bucket returns the caller's bucket for a path. Every access refreshes its
// idle TTL.
func (l *Limiter) bucket(caller, path string) (*rate.Limiter, Limit) {
	limit := l.limitFor(path)
	key := caller + "|" + path
	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(rate.Limit(limit.RequestsPerSecond), limit.BurstSize)
	}
	l.buckets.Set(key, b)
	return b, limit
}

// Middleware returns an HTTP middleware that applies rate limiting.
func (l *Limiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, limit := l.bucket(l.config.KeyFunc(r), r.URL.Path)

		now := time.Now()
		reservation := b.ReserveN(now, 1)
		delay := reservation.DelayFrom(now)
		allowed := reservation.OK() && delay == 0
		if !allowed {
			reservation.CancelAt(now)
		}

		remaining := int(math.Max(0, math.Floor(b.TokensAt(now))))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.BurstSize))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := int(math.Ceil(delay.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			l.config.Logger.Warn("rate limit exceeded",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("retry_after", retryAfter),
			)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limited",
				"detail":      "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		next(w, r)
	}
}
