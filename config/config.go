package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/usecase"
)

// EnvPrefix prefixes every environment override, e.g. FEEDSYNC_SHOPIFY_STORE_URL
const EnvPrefix = "FEEDSYNC"

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Shopify ShopifyConfig `mapstructure:"shopify"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// FeedConfig holds vendor feed settings
type FeedConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ShopifyConfig holds Shopify Admin API settings
type ShopifyConfig struct {
	StoreURL    string        `mapstructure:"store_url"`
	AccessToken string        `mapstructure:"access_token"`
	APIVersion  string        `mapstructure:"api_version"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
}

// SyncConfig holds reconciliation run settings
type SyncConfig struct {
	ProductDelay    time.Duration      `mapstructure:"product_delay"`
	CallTimeout     time.Duration      `mapstructure:"call_timeout"`
	RunTimeout      time.Duration      `mapstructure:"run_timeout"`
	Schedule        string             `mapstructure:"schedule"`
	CategoryMapFile string             `mapstructure:"category_map_file"`
	DefaultOptions  domain.SyncOptions `mapstructure:"default_options"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// StoreConfig selects where sync run history is persisted.
// An empty driver keeps only the latest run in memory.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite", "postgres" or ""
	DSN    string `mapstructure:"dsn"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json", "console" or "" for auto
}

// legacyEnv maps config keys to the unprefixed variable names older
// deployments put in their .env files.
var legacyEnv = map[string][]string{
	"feed.url":             {"XML_FEED_URL"},
	"shopify.store_url":    {"SHOPIFY_STORE_URL"},
	"shopify.access_token": {"SHOPIFY_ACCESS_TOKEN", "SHOPIFY_ADMIN_API_TOKEN"},
	"server.port":          {"PORT"},
}

// Load reads .env, then the config file, then environment overrides.
// configFile may be empty to search the default locations.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/feedsync/")
	}

	// Environment variable settings
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFiles loads .env files into the process environment.
// Variables already set are never overwritten.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func bindLegacyEnv(v *viper.Viper) error {
	for key, names := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Feed defaults
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.timeout", "60s")

	// Shopify defaults
	v.SetDefault("shopify.store_url", "")
	v.SetDefault("shopify.access_token", "")
	v.SetDefault("shopify.api_version", "2024-07")
	v.SetDefault("shopify.timeout", "30s")
	v.SetDefault("shopify.max_retries", 3)
	v.SetDefault("shopify.rate_limit", 2.0)
	v.SetDefault("shopify.rate_burst", 4)

	// Sync defaults
	v.SetDefault("sync.product_delay", "300ms")
	v.SetDefault("sync.call_timeout", "30s")
	v.SetDefault("sync.run_timeout", "4h")
	v.SetDefault("sync.schedule", "")
	v.SetDefault("sync.category_map_file", "")
	v.SetDefault("sync.default_options.full", false)
	v.SetDefault("sync.default_options.price", false)
	v.SetDefault("sync.default_options.inventory", false)
	v.SetDefault("sync.default_options.details", false)
	v.SetDefault("sync.default_options.images", false)

	// Cache defaults
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Store defaults
	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Feed.URL == "" {
		return fmt.Errorf("feed URL is required (set %s_FEED_URL)", EnvPrefix)
	}
	if config.Shopify.StoreURL == "" {
		return fmt.Errorf("Shopify store URL is required (set %s_SHOPIFY_STORE_URL)", EnvPrefix)
	}
	if config.Shopify.AccessToken == "" {
		return fmt.Errorf("Shopify access token is required (set %s_SHOPIFY_ACCESS_TOKEN)", EnvPrefix)
	}

	if config.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive, got: %s", config.Feed.Timeout)
	}
	if config.Shopify.Timeout <= 0 {
		return fmt.Errorf("shopify timeout must be positive, got: %s", config.Shopify.Timeout)
	}
	if config.Sync.CallTimeout <= 0 {
		return fmt.Errorf("sync call timeout must be positive, got: %s", config.Sync.CallTimeout)
	}
	if config.Sync.ProductDelay < 0 {
		return fmt.Errorf("sync product delay must not be negative, got: %s", config.Sync.ProductDelay)
	}
	if config.Shopify.MaxRetries < 1 {
		return fmt.Errorf("shopify max retries must be at least 1, got: %d", config.Shopify.MaxRetries)
	}

	switch config.Store.Driver {
	case "":
	case "sqlite", "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for driver %q", config.Store.Driver)
		}
	default:
		return fmt.Errorf("unsupported store driver %q (want sqlite or postgres)", config.Store.Driver)
	}

	if config.Sync.Schedule != "" {
		if _, err := usecase.ScheduleParser.Parse(config.Sync.Schedule); err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", config.Sync.Schedule, err)
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
