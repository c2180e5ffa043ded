// Package middleware authenticates agent callers by bearer API key.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/smorand/slides-content-api/internal/auth"
	"github.com/smorand/slides-content-api/internal/cache"
)

// Context keys for authenticated data.
type contextKey string

const (
	// APIKeyContextKey is the context key for the API key.
	APIKeyContextKey contextKey = "api_key"
	// AgentContextKey is the context key for the calling agent's name.
	AgentContextKey contextKey = "agent"
)

// Sentinel errors for API key validation.
var (
	ErrMissingAuthHeader  = errors.New("missing Authorization header")
	ErrInvalidAuthHeader  = errors.New("invalid Authorization header format")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrAPIKeyLookupFailed = errors.New("failed to lookup API key")
)

// APIKeyMiddlewareConfig holds configuration for the API key middleware.
type APIKeyMiddlewareConfig struct {
	Store          auth.APIKeyStoreInterface
	CacheTTL       time.Duration // Default 5 minutes
	CacheSize      int           // Default 1000
	UpdateLastUsed bool
	Logger         *slog.Logger
}

// DefaultAPIKeyMiddlewareConfig returns default configuration.
func DefaultAPIKeyMiddlewareConfig() APIKeyMiddlewareConfig {
	return APIKeyMiddlewareConfig{
		CacheTTL:       5 * time.Minute,
		CacheSize:      1000,
		UpdateLastUsed: true,
		Logger:         slog.Default(),
	}
}

// APIKeyMiddleware validates bearer API keys against the key store.
type APIKeyMiddleware struct {
	config APIKeyMiddlewareConfig
	cache  *cache.LRU[*auth.APIKeyRecord]
}

// NewAPIKeyMiddleware creates a new API key middleware.
func NewAPIKeyMiddleware(config APIKeyMiddlewareConfig) *APIKeyMiddleware {
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.CacheSize == 0 {
		config.CacheSize = 1000
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &APIKeyMiddleware{
		config: config,
		cache: cache.New[*auth.APIKeyRecord](cache.Config{
			Name:       "api_keys",
			MaxEntries: config.CacheSize,
			TTL:        config.CacheTTL,
			Logger:     config.Logger,
		}),
	}
}

// Middleware returns an HTTP middleware that rejects requests without a
// valid API key and stores the caller in the request context.
func (m *APIKeyMiddleware) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		apiKey, err := extractAPIKey(r)
		if err != nil {
			m.writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		record, err := m.validate(ctx, apiKey)
		if err != nil {
			if errors.Is(err, ErrInvalidAPIKey) {
				m.writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			m.config.Logger.Error("failed to validate API key",
				slog.String("api_key", auth.MaskAPIKey(apiKey)),
				slog.Any("error", err),
			)
			m.writeError(w, http.StatusInternalServerError, "internal_error", "authentication failed")
			return
		}

		if m.config.UpdateLastUsed {
			go m.updateLastUsed(context.WithoutCancel(ctx), apiKey)
		}

		ctx = context.WithValue(ctx, APIKeyContextKey, apiKey)
		ctx = context.WithValue(ctx, AgentContextKey, record.Agent)
		next(w, r.WithContext(ctx))
	}
}

// extractAPIKey extracts the API key from the Authorization header.
func extractAPIKey(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidAuthHeader
	}

	apiKey := strings.TrimSpace(parts[1])
	if apiKey == "" {
		return "", ErrInvalidAuthHeader
	}
	return apiKey, nil
}

// validate looks the key up, cache first. Unknown and revoked keys are
// ErrInvalidAPIKey.
func (m *APIKeyMiddleware) validate(ctx context.Context, apiKey string) (*auth.APIKeyRecord, error) {
	if record, ok := m.cache.Get(apiKey); ok {
		return record, nil
	}

	record, err := m.config.Store.Get(ctx, apiKey)
	if err != nil {
		if errors.Is(err, auth.ErrAPIKeyNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, errors.Join(ErrAPIKeyLookupFailed, err)
	}
	if record.Revoked {
		return nil, ErrInvalidAPIKey
	}

	m.cache.Set(apiKey, record)
	return record, nil
}

// updateLastUsed updates the last_used timestamp in the store.
func (m *APIKeyMiddleware) updateLastUsed(ctx context.Context, apiKey string) {
	if err := m.config.Store.UpdateLastUsed(ctx, apiKey); err != nil {
		m.config.Logger.Warn("failed to update last_used timestamp",
			slog.String("api_key", auth.MaskAPIKey(apiKey)),
			slog.Any("error", err),
		)
	}
}

// InvalidateCache removes an API key from the cache.
func (m *APIKeyMiddleware) InvalidateCache(apiKey string) {
	m.cache.Delete(apiKey)
}

// writeError writes a JSON error body.
func (m *APIKeyMiddleware) writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  code,
		"detail": detail,
	})
}

// GetAPIKey retrieves the API key from the request context.
func GetAPIKey(ctx context.Context) string {
	v, _ := ctx.Value(APIKeyContextKey).(string)
	return v
}

// GetAgent retrieves the calling agent's name from the request context.
func GetAgent(ctx context.Context) string {
	v, _ := ctx.Value(AgentContextKey).(string)
	return v
}
