// Package config provides configuration management using Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Raster    RasterConfig    `mapstructure:"raster"`
	Reader    ReaderConfig    `mapstructure:"reader"`
	Items     []ItemConfig    `mapstructure:"items"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	TileCache TileCacheConfig `mapstructure:"tile_cache"`
	TLS       TLSConfig       `mapstructure:"tls"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// FetchConfig holds item document fetch configuration.
type FetchConfig struct {
	CacheSize int           `mapstructure:"cache_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	S3        S3Config      `mapstructure:"s3"`
	Azure     AzureConfig   `mapstructure:"azure"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
}

// RasterConfig holds the raster backend configuration.
type RasterConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ReaderConfig holds multi-asset reader defaults.
type ReaderConfig struct {
	Concurrency   int      `mapstructure:"concurrency"`     // 0: MAX_THREADS env or NumCPU*5
	AllAssetTypes bool     `mapstructure:"all_asset_types"` // Disable the default media-type filter
	IncludeTypes  []string `mapstructure:"include_types"`
	ExcludeTypes  []string `mapstructure:"exclude_types"`
}

// ItemConfig registers one item at startup.
type ItemConfig struct {
	ID       string `mapstructure:"id"`
	Location string `mapstructure:"location"`
}

// WatcherConfig holds filesystem watcher configuration.
type WatcherConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"` // Directory with item documents to watch
}

// TileCacheConfig holds rendered tile cache configuration.
type TileCacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Path          string        `mapstructure:"path"`
	TTL           time.Duration `mapstructure:"ttl"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// TLSConfig holds TLS/CertMagic configuration.
type TLSConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Domains  []string     `mapstructure:"domains"`
	Email    string       `mapstructure:"email"`
	CacheDir string       `mapstructure:"cache_dir"`
	Staging  bool         `mapstructure:"staging"` // Use Let's Encrypt staging
	DNS      TLSDNSConfig `mapstructure:"dns"`
}

// TLSDNSConfig holds Azure DNS provider settings for DNS-01 challenges.
// When subscription_id is empty CertMagic falls back to HTTP-01.
type TLSDNSConfig struct {
	SubscriptionID    string `mapstructure:"subscription_id"`
	ResourceGroupName string `mapstructure:"resource_group_name"`
	ClientID          string `mapstructure:"client_id"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values.
func Defaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.cors.allowed_origins", []string{})

	// Fetch defaults
	viper.SetDefault("fetch.cache_size", 512)
	viper.SetDefault("fetch.timeout", 30*time.Second)

	// Raster backend defaults
	viper.SetDefault("raster.endpoint", "http://localhost:8181")
	viper.SetDefault("raster.timeout", 60*time.Second)

	// Reader defaults
	viper.SetDefault("reader.concurrency", 0)
	viper.SetDefault("reader.all_asset_types", false)

	// Watcher defaults
	viper.SetDefault("watcher.enabled", false)

	// Tile cache defaults
	viper.SetDefault("tile_cache.enabled", false)
	viper.SetDefault("tile_cache.path", "./tiles.db")
	viper.SetDefault("tile_cache.ttl", time.Hour)
	viper.SetDefault("tile_cache.prune_interval", 15*time.Minute)

	// TLS defaults
	viper.SetDefault("tls.enabled", false)
	viper.SetDefault("tls.cache_dir", "./.certmagic")
	viper.SetDefault("tls.staging", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// Load loads configuration from environment and config file.
func Load(configPath string) (*Config, error) {
	Defaults()

	// Environment variable binding
	viper.SetEnvPrefix("STAC_TILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/stac-tiler")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Raster.Endpoint == "" {
		return fmt.Errorf("raster backend endpoint is required")
	}

	if c.TLS.Enabled {
		if len(c.TLS.Domains) == 0 {
			return fmt.Errorf("TLS enabled but no domains specified")
		}
		if c.TLS.Email == "" {
			return fmt.Errorf("TLS enabled but no email specified")
		}
	}

	if c.TileCache.Enabled && c.TileCache.Path == "" {
		return fmt.Errorf("tile cache enabled but no path specified")
	}

	if c.Watcher.Enabled && c.Watcher.Dir == "" {
		return fmt.Errorf("watcher enabled but no directory specified")
	}

	seen := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		if item.ID == "" || item.Location == "" {
			return fmt.Errorf("items entries require both id and location")
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("duplicate item id: %s", item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
