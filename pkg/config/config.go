package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Auth modes.
const (
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	Store           string `mapstructure:"STORE"`
	PostgresConnStr string `mapstructure:"POSTGRES_CONN_STR"`
	RealtimeURL     string `mapstructure:"REALTIME_URL"`
	AutoMigrate     bool   `mapstructure:"AUTO_MIGRATE"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	SessionIdle   time.Duration `mapstructure:"SESSION_IDLE"`

	AuthMode                string `mapstructure:"AUTH_MODE"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`

	FeedLimit        int `mapstructure:"FEED_LIMIT"`
	ProfileCacheSize int `mapstructure:"PROFILE_CACHE_SIZE"`
}

// Load reads .env into the environment when present, then builds the
// Config from the environment and defaults.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")

	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("POSTGRES_CONN_STR", "")
	v.SetDefault("REALTIME_URL", "")
	v.SetDefault("AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("SESSION_IDLE", "2h")

	v.SetDefault("AUTH_MODE", AuthJWT)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "")

	v.SetDefault("FEED_LIMIT", 100)
	v.SetDefault("PROFILE_CACHE_SIZE", 512)
}

// Validate checks that the settings the chosen backends need are present.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.PostgresConnStr == "" {
			return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	switch c.AuthMode {
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET environment variable not set")
		}
	case AuthFirebase:
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH environment variable not set")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	if c.FeedLimit <= 0 {
		return fmt.Errorf("FEED_LIMIT must be positive, got %d", c.FeedLimit)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}
