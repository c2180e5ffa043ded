// Package retry retries Document Store calls that fail with a transient
// status, using exponential backoff with jitter.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// ErrMaxRetriesExceeded is joined to the last error once all attempts fail.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Config holds retry configuration.
type Config struct {
	MaxRetries   int           // Retries after the first attempt (default: 3)
	InitialDelay time.Duration // Delay before the first retry (default: 500ms)
	MaxDelay     time.Duration // Cap on a single delay (default: 8s)
	Multiplier   float64       // Backoff multiplier (default: 2.0)
	JitterFactor float64       // Random spread around each delay, 0 to 1 (default: 0.2)
	// RetryableStatusCodes trigger a retry (default: 429, 500, 502, 503, 504).
	RetryableStatusCodes []int
	// StatusOf extracts an HTTP status from an error (default: StatusOf).
	StatusOf func(error) int
	Logger   *slog.Logger
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		StatusOf: StatusOf,
		Logger:   slog.Default(),
	}
}

// Retryer runs operations with retry.
type Retryer struct {
	config    Config
	retryable map[int]bool
}

// New creates a Retryer. Zero fields take their default.
func New(config Config) *Retryer {
	defaults := DefaultConfig()
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = defaults.Multiplier
	}
	if config.JitterFactor <= 0 || config.JitterFactor > 1 {
		config.JitterFactor = defaults.JitterFactor
	}
	if len(config.RetryableStatusCodes) == 0 {
		config.RetryableStatusCodes = defaults.RetryableStatusCodes
	}
	if config.StatusOf == nil {
		config.StatusOf = StatusOf
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	retryable := make(map[int]bool, len(config.RetryableStatusCodes))
	for _, code := range config.RetryableStatusCodes {
		retryable[code] = true
	}
	return &Retryer{config: config, retryable: retryable}
}

// StatusOf returns the HTTP status carried by a Google API error. Network
// errors report 503 so they are retried; anything else reports 0.
func StatusOf(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return http.StatusServiceUnavailable
	}
	return 0
}

// IsRetryable reports whether a status code triggers a retry.
func (r *Retryer) IsRetryable(statusCode int) bool {
	return r.retryable[statusCode]
}

// MaxRetries returns the configured number of retries.
func (r *Retryer) MaxRetries() int {
	return r.config.MaxRetries
}

// Delay returns the wait before retry attempt (1-based):
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay, spread by
// ±JitterFactor.
func (r *Retryer) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(r.config.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= r.config.Multiplier
	}
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	spread := delay * r.config.JitterFactor
	delay += rand.Float64()*2*spread - spread
	if delay < float64(time.Millisecond) {
		delay = float64(time.Millisecond)
	}
	return time.Duration(delay)
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// retries run out or ctx is done. The returned error wraps op's last error.
func (r *Retryer) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, r, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoWithResult is Do for operations that return a value.
func DoWithResult[T any](ctx context.Context, r *Retryer, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				r.config.Logger.Info("operation succeeded after retry",
					slog.String("operation", name),
					slog.Int("attempts", attempt+1),
				)
			}
			return res, nil
		}
		lastErr = err

		status := r.config.StatusOf(err)
		if !r.IsRetryable(status) {
			return zero, err
		}
		if attempt == r.config.MaxRetries {
			break
		}

		delay := r.Delay(attempt + 1)
		r.config.Logger.Warn("retrying operation",
			slog.String("operation", name),
			slog.Int("attempt", attempt+1),
			slog.Int("status_code", status),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	r.config.Logger.Error("max retries exceeded",
		slog.String("operation", name),
		slog.Int("max_retries", r.config.MaxRetries),
		slog.Any("error", lastErr),
	)
	return zero, errors.Join(ErrMaxRetriesExceeded, lastErr)
}
