package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// GatewayConfig holds the catalog REST API configuration
type GatewayConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	ProductsPath         string        `mapstructure:"products_path"`
	CategoriesPath       string        `mapstructure:"categories_path"`
	Timeout              int           `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	Breaker              BreakerConfig `mapstructure:"breaker"`
}

func (c GatewayConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// BreakerConfig tunes the gateway circuit breaker. Durations are in seconds.
type BreakerConfig struct {
	MaxRequests  uint32  `mapstructure:"max_requests"`
	Interval     int     `mapstructure:"interval"`
	Timeout      int     `mapstructure:"timeout"`
	FailureRatio float64 `mapstructure:"failure_ratio"`
	MinRequests  uint32  `mapstructure:"min_requests"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	Database   int    `mapstructure:"database"`
	SessionKey string `mapstructure:"session_key"`
	SessionTTL int    `mapstructure:"session_ttl"` // seconds, 0 keeps the record until logout
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig shapes the ledgers a browsing session starts with
type SessionConfig struct {
	TrackVariants      bool `mapstructure:"track_variants"`
	MaxQuantityPerItem int  `mapstructure:"max_quantity_per_item"`
	MaxItems           int  `mapstructure:"max_items"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// AuthConfig lists the accounts accepted by the stub authenticator
type AuthConfig struct {
	Accounts []AccountConfig `mapstructure:"accounts"`
}

// AccountConfig is one login. PasswordHash is a bcrypt hash.
type AccountConfig struct {
	ID           string `mapstructure:"id"`
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Admin        bool   `mapstructure:"admin"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from YAML file with environment variable overrides.
// The file is looked up as config.yaml in the given directories, or in the
// working directory when none are given.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in %s", strings.Join(paths, ", "))
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if c.Gateway.ProductsPath == "" || c.Gateway.CategoriesPath == "" {
		return fmt.Errorf("gateway resource paths must not be empty")
	}
	if c.Session.MaxQuantityPerItem < 0 || c.Session.MaxItems < 0 {
		return fmt.Errorf("session limits must not be negative")
	}
	for i, a := range c.Auth.Accounts {
		if a.Username == "" || a.PasswordHash == "" {
			return fmt.Errorf("auth.accounts[%d] needs a username and password_hash", i)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.base_url", "http://localhost:8000/api/")
	v.SetDefault("gateway.products_path", "productos/")
	v.SetDefault("gateway.categories_path", "categorias/")
	v.SetDefault("gateway.timeout", 15)
	v.SetDefault("gateway.max_retries", 0)
	v.SetDefault("gateway.max_requests_per_second", 10)
	v.SetDefault("gateway.breaker.max_requests", 1)
	v.SetDefault("gateway.breaker.interval", 60)
	v.SetDefault("gateway.breaker.timeout", 30)
	v.SetDefault("gateway.breaker.failure_ratio", 0.5)
	v.SetDefault("gateway.breaker.min_requests", 5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.session_key", "storefront:session:user")
	v.SetDefault("redis.session_ttl", 0)

	v.SetDefault("session.track_variants", true)
	v.SetDefault("session.max_quantity_per_item", 100)
	v.SetDefault("session.max_items", 50)

	v.SetDefault("metrics.addr", ":9102")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
