// Package config loads service configuration from defaults, an optional
// YAML file and JOBGARDEN_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a
// double underscore: JOBGARDEN_DATABASE__URL sets database.url.
const EnvPrefix = "JOBGARDEN_"

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "JOBGARDEN_CONFIG"

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	JWT           JWTConfig           `koanf:"jwt"`
	Cookie        CookieConfig        `koanf:"cookie"`
	CORS          CORSConfig          `koanf:"cors"`
	Auth          AuthConfig          `koanf:"auth"`
	Bootstrap     BootstrapConfig     `koanf:"bootstrap"`
	RateLimit     RateLimitConfig     `koanf:"rate_limit"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"min=1"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// JWTConfig contains token settings.
type JWTConfig struct {
	SecretKey            string        `koanf:"secret_key" validate:"required,min=16"`
	AccessTokenDuration  time.Duration `koanf:"access_token_duration" validate:"required"`
	RefreshTokenDuration time.Duration `koanf:"refresh_token_duration" validate:"required"`
}

// CookieConfig contains auth cookie settings.
type CookieConfig struct {
	Secure bool   `koanf:"secure"`
	Domain string `koanf:"domain"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// AuthConfig selects the credential hashing scheme for new passwords.
// Existing hashes of either scheme keep verifying.
type AuthConfig struct {
	PasswordHasher string `koanf:"password_hasher" validate:"oneof=bcrypt argon2"`
}

// BootstrapConfig describes the admin account ensured at startup.
type BootstrapConfig struct {
	AdminEmail    string `koanf:"admin_email" validate:"omitempty,email"`
	AdminPassword string `koanf:"admin_password" validate:"required_with=AdminEmail,omitempty,min=8"`
}

// RateLimitConfig limits auth and submission endpoints per client IP.
// An empty RedisURL keeps counters in process.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	RedisURL string        `koanf:"redis_url"`
	Requests int           `koanf:"requests" validate:"min=0"`
	Window   time.Duration `koanf:"window"`
}

// NotificationsConfig contains notification delivery settings.
type NotificationsConfig struct {
	Enabled   bool        `koanf:"enabled"`
	BaseURL   string      `koanf:"base_url"`
	QueueSize int         `koanf:"queue_size" validate:"min=1"`
	Workers   int         `koanf:"workers" validate:"min=1"`
	Retry     RetryConfig `koanf:"retry"`
	Email     EmailConfig `koanf:"email"`
}

// RetryConfig controls delivery retries.
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts" validate:"min=1"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier" validate:"gte=1"`
}

// EmailConfig contains SMTP settings.
type EmailConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host" validate:"required_if=Enabled true"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address" validate:"required_if=Enabled true,omitempty,email"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsPath:  "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			PasswordHasher: "bcrypt",
		},
		RateLimit: RateLimitConfig{
			Requests: 20,
			Window:   time.Minute,
		},
		Notifications: NotificationsConfig{
			QueueSize: 256,
			Workers:   2,
			Retry: RetryConfig{
				MaxAttempts:       3,
				InitialBackoff:    time.Second,
				MaxBackoff:        30 * time.Second,
				BackoffMultiplier: 2,
			},
			Email: EmailConfig{
				SMTPPort: 587,
			},
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// JOBGARDEN_CONFIG is consulted and, if that is empty too, only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps JOBGARDEN_RATE_LIMIT__REDIS_URL to rate_limit.redis_url.
// List values are comma separated.
func envKey(key, value string) (string, interface{}) {
	if key == EnvConfigPath {
		return "", nil
	}
	k := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	k = strings.ReplaceAll(k, "__", ".")

	if k == "cors.allowed_origins" {
		parts := strings.Split(value, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		return k, origins
	}
	return k, value
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("invalid config: rate_limit requires positive requests and window when enabled")
	}

	if c.Notifications.Retry.InitialBackoff > c.Notifications.Retry.MaxBackoff {
		return errors.New("invalid config: notifications.retry.initial_backoff exceeds max_backoff")
	}

	return nil
}
