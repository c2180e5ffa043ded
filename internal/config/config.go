// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvPort                   = "PORT"
	EnvServiceAccountFile     = "GOOGLE_SERVICE_ACCOUNT_FILE"
	EnvProjectID              = "GOOGLE_PROJECT_ID"
	EnvServiceAccountSecretID = "SERVICE_ACCOUNT_SECRET_ID"
	EnvTemplateFile           = "TEMPLATE_FILE"
	EnvAPIKeyAuth             = "API_KEY_AUTH"
	EnvAPIKeyCollection       = "API_KEY_COLLECTION"
	EnvRateLimitRPS           = "RATE_LIMIT_RPS"
	EnvRateLimitBurst         = "RATE_LIMIT_BURST"
	EnvWriteRateLimitRPS      = "WRITE_RATE_LIMIT_RPS"
	EnvAllowedOrigins         = "ALLOWED_ORIGINS"
	EnvCheckPermissions       = "CHECK_PERMISSIONS"
	EnvLogLevel               = "LOG_LEVEL"
	EnvMaxAssignmentsPerBatch = "MAX_ASSIGNMENTS_PER_BATCH"
)

const (
	defaultAPIKeyCollection       = "api_keys"
	defaultMaxAssignmentsPerBatch = 50
)

// ErrInvalidConfig is returned for malformed or inconsistent settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the process configuration.
type Config struct {
	Port int

	// Credentials: a key file, or a Secret Manager secret in ProjectID.
	// With neither, application default credentials are used.
	ServiceAccountFile     string
	ProjectID              string
	ServiceAccountSecretID string

	TemplateFile           string
	MaxAssignmentsPerBatch int

	APIKeyAuth       bool
	APIKeyCollection string

	RateLimitRPS      float64
	RateLimitBurst    int
	WriteRateLimitRPS float64 // 0 uses RateLimitRPS

	AllowedOrigins   []string
	CheckPermissions bool
	LogLevel         slog.Level
}

// Default returns configuration with default values.
func Default() Config {
	return Config{
		Port:                   8080,
		APIKeyCollection:       defaultAPIKeyCollection,
		MaxAssignmentsPerBatch: defaultMaxAssignmentsPerBatch,
		RateLimitRPS:           10,
		RateLimitBurst:         20,
		AllowedOrigins:         []string{"*"},
		LogLevel:               slog.LevelInfo,
	}
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, starting from Default.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	r := reader{lookup: lookup}

	c.Port = r.integer(EnvPort, c.Port)
	c.ServiceAccountFile = r.text(EnvServiceAccountFile, c.ServiceAccountFile)
	c.ProjectID = r.text(EnvProjectID, c.ProjectID)
	c.ServiceAccountSecretID = r.text(EnvServiceAccountSecretID, c.ServiceAccountSecretID)
	c.TemplateFile = r.text(EnvTemplateFile, c.TemplateFile)
	c.MaxAssignmentsPerBatch = r.integer(EnvMaxAssignmentsPerBatch, c.MaxAssignmentsPerBatch)
	c.APIKeyAuth = r.flag(EnvAPIKeyAuth, c.APIKeyAuth)
	c.APIKeyCollection = r.text(EnvAPIKeyCollection, c.APIKeyCollection)
	c.RateLimitRPS = r.number(EnvRateLimitRPS, c.RateLimitRPS)
	c.RateLimitBurst = r.integer(EnvRateLimitBurst, c.RateLimitBurst)
	c.WriteRateLimitRPS = r.number(EnvWriteRateLimitRPS, c.WriteRateLimitRPS)
	c.AllowedOrigins = r.list(EnvAllowedOrigins, c.AllowedOrigins)
	c.CheckPermissions = r.flag(EnvCheckPermissions, c.CheckPermissions)

	if v, ok := r.value(EnvLogLevel); ok {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
		}
	}

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var problems []string
	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.ServiceAccountSecretID != "" && c.ProjectID == "" {
		problems = append(problems, EnvServiceAccountSecretID+" requires "+EnvProjectID)
	}
	if c.APIKeyAuth && c.ProjectID == "" {
		problems = append(problems, EnvAPIKeyAuth+" requires "+EnvProjectID)
	}
	if c.RateLimitRPS < 0 || c.WriteRateLimitRPS < 0 || c.RateLimitBurst < 0 {
		problems = append(problems, "rate limits must not be negative")
	}
	if c.MaxAssignmentsPerBatch < 1 {
		problems = append(problems, "max assignments per batch must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// reader collects parse errors while reading variables.
type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *reader) text(key, def string) string {
	if v, ok := r.value(key); ok {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *reader) number(key string, def float64) float64 {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (r *reader) flag(key string, def bool) bool {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (r *reader) list(key string, def []string) []string {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
