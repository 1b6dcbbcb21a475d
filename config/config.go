package config

import (
	"bookingmaint/db"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SupabaseURLEnvVar     = "SUPABASE_URL"
	ServiceRoleKeyEnvVar  = "SUPABASE_SERVICE_ROLE_KEY" //nolint:gosec
	DatabaseURLEnvVar     = "DATABASE_URL"
	TenantIDEnvVar        = "TENANT_ID"
	DefaultTenantIDEnvVar = "WA_DEFAULT_TENANT_ID"
	LogLevelEnvVar        = "LOG_LEVEL"
	HTTPTimeoutEnvVar     = "HTTP_TIMEOUT"
	UpdateRateEnvVar      = "UPDATE_RATE"
	DefaultEnvFile        = ".env.local"
	DefaultTenantID       = db.DemoTenantID
	defaultHTTPTimeout    = 15 * time.Second
	defaultLogLevel       = "info"
)

var ErrMissing = errors.New("missing required configuration")

// Config is read once at startup and passed down explicitly.
type Config struct {
	SupabaseURL    string
	ServiceRoleKey string
	DatabaseURL    string
	TenantID       string
	LogLevel       string
	HTTPTimeout    time.Duration
	UpdateRate     float64
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then reads the configuration
// from the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(LogLevelEnvVar, defaultLogLevel)
	v.SetDefault(HTTPTimeoutEnvVar, defaultHTTPTimeout)
	v.SetDefault(UpdateRateEnvVar, 0)

	cfg := &Config{
		SupabaseURL:    strings.TrimSpace(v.GetString(SupabaseURLEnvVar)),
		ServiceRoleKey: strings.TrimSpace(v.GetString(ServiceRoleKeyEnvVar)),
		DatabaseURL:    strings.TrimSpace(v.GetString(DatabaseURLEnvVar)),
		TenantID:       strings.TrimSpace(v.GetString(TenantIDEnvVar)),
		LogLevel:       v.GetString(LogLevelEnvVar),
		HTTPTimeout:    v.GetDuration(HTTPTimeoutEnvVar),
		UpdateRate:     v.GetFloat64(UpdateRateEnvVar),
	}
	if cfg.TenantID == "" {
		cfg.TenantID = strings.TrimSpace(v.GetString(DefaultTenantIDEnvVar))
	}
	if cfg.TenantID == "" {
		cfg.TenantID = DefaultTenantID
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate requires either the Supabase REST pair or a direct database URL.
func (c *Config) Validate() error {
	if c.UpdateRate < 0 {
		return fmt.Errorf("%s must not be negative", UpdateRateEnvVar)
	}
	if c.DatabaseURL != "" {
		return nil
	}
	var missing []string
	if c.SupabaseURL == "" {
		missing = append(missing, SupabaseURLEnvVar)
	}
	if c.ServiceRoleKey == "" {
		missing = append(missing, ServiceRoleKeyEnvVar)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s (or %s)", ErrMissing, strings.Join(missing, " and "), DatabaseURLEnvVar)
	}
	if !strings.HasPrefix(c.SupabaseURL, "https://") && !strings.HasPrefix(c.SupabaseURL, "http://") {
		return fmt.Errorf("%s must be an http(s) URL, got %q", SupabaseURLEnvVar, c.SupabaseURL)
	}
	return nil
}

// ValidateTenant checks TenantID is a UUID, as tenant keys are.
func (c *Config) ValidateTenant() error {
	if _, err := uuid.Parse(c.TenantID); err != nil {
		return fmt.Errorf("tenant id %q is not a UUID: %w", c.TenantID, err)
	}
	return nil
}

// Backend names the store OpenStore will build.
func (c *Config) Backend() string {
	if c.DatabaseURL != "" {
		return "sql"
	}
	return "rest"
}

// Pinger is implemented by stores that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpenStore builds the store the configuration points at. A direct database
// URL wins over the REST pair.
func OpenStore(cfg *Config) (db.Store, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.OpenSQL(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db.NewSQLStore(conn), nil
	}
	return db.NewRESTStore(cfg.SupabaseURL, cfg.ServiceRoleKey,
		db.WithTimeout(cfg.HTTPTimeout),
		db.WithUpdateRate(cfg.UpdateRate),
	), nil
}
