package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth      AuthConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET, required"`
	SessionTTL time.Duration `env:"SESSION_TTL, default=720h"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`
}

type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER, default=sqlite"`
	DatabaseURL string `env:"DATABASE_URL, default=file:issues.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE, default=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=issues"`
}

// RedisConfig is optional: an empty address keeps rate limiting in process.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type RateLimitConfig struct {
	Enabled   bool `env:"RATE_LIMIT_ENABLED,    default=true"`
	PerMinute int  `env:"RATE_LIMIT_PER_MINUTE, default=10"`
	Burst     int  `env:"RATE_LIMIT_BURST,      default=5"`
}

// Development reports whether the service runs in a local environment.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l. Tests pass an envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadStore reads only the store settings. Schema commands use it so they
// run without the session secret.
func LoadStore(ctx context.Context) (*Config, error) {
	cfg := Config{Auth: AuthConfig{SessionTTL: time.Hour}}
	if err := envconfig.Process(ctx, &cfg.Store); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := envconfig.Process(ctx, &cfg.Mongo); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.RateLimit.Enabled = false
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the " + c.Store.Driver + " store")
		}
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("MONGO_URI and MONGO_DB are required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.PerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive when rate limiting is enabled")
	}
	return nil
}
