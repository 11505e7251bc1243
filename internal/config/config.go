package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
}

type ServerConfig struct {
	Port    string   `mapstructure:"port"`
	Env     string   `mapstructure:"env"`
	APIKeys []string `mapstructure:"api_keys"`
}

// StoreConfig selects the configuration store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // sqlite | dynamodb
	DSN     string `mapstructure:"dsn"`     // sqlite only

	// dynamodb only
	Region        string `mapstructure:"region"`
	ProviderTable string `mapstructure:"provider_table"`
	EndpointTable string `mapstructure:"endpoint_table"`
	AgentTable    string `mapstructure:"agent_table"`
}

// SecretsConfig selects the secret store backend.
type SecretsConfig struct {
	Backend string `mapstructure:"backend"` // env | secretsmanager
	Region  string `mapstructure:"region"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend"` // memory | redis
	ConfigTTL time.Duration `mapstructure:"config_ttl"`
	SecretTTL time.Duration `mapstructure:"secret_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DispatchConfig holds fallbacks applied when a ProviderTemplate leaves
// timeout or retry settings unset.
type DispatchConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffCap     time.Duration `mapstructure:"backoff_cap"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	// Default Values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.dsn", "file:gateway.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("secrets.backend", "env")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.config_ttl", 5*time.Minute)
	v.SetDefault("cache.secret_ttl", 5*time.Minute)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("dispatch.default_timeout", 60*time.Second)
	v.SetDefault("dispatch.max_retries", 3)
	v.SetDefault("dispatch.backoff_base", 200*time.Millisecond)
	v.SetDefault("dispatch.backoff_cap", 5*time.Second)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}
