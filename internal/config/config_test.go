package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}

	// Without an explicit path, missing files fall back to defaults.
	resetViper(t)
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Fetch.CacheSize != 512 {
		t.Errorf("CacheSize = %d, want 512", cfg.Fetch.CacheSize)
	}
	if cfg.TileCache.TTL != time.Hour {
		t.Errorf("TTL = %v, want 1h", cfg.TileCache.TTL)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadFromFile(t *testing.T) {
	resetViper(t)

	doc := `
server:
  port: 9000
raster:
  endpoint: http://tiler:8181
items:
  - id: sentinel
    location: s3://bucket/item.json
tile_cache:
  enabled: true
  path: /var/cache/tiles.db
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Raster.Endpoint != "http://tiler:8181" {
		t.Errorf("Endpoint = %q", cfg.Raster.Endpoint)
	}
	if len(cfg.Items) != 1 || cfg.Items[0].ID != "sentinel" {
		t.Errorf("Items = %+v", cfg.Items)
	}
	if !cfg.TileCache.Enabled {
		t.Error("TileCache.Enabled = false, want true")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
			Raster: RasterConfig{Endpoint: "http://localhost:8181"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"missing raster endpoint", func(c *Config) { c.Raster.Endpoint = "" }, true},
		{"tls without domains", func(c *Config) { c.TLS.Enabled = true; c.TLS.Email = "a@b.c" }, true},
		{"tls without email", func(c *Config) { c.TLS.Enabled = true; c.TLS.Domains = []string{"x.org"} }, true},
		{"tile cache without path", func(c *Config) { c.TileCache.Enabled = true }, true},
		{"watcher without dir", func(c *Config) { c.Watcher.Enabled = true }, true},
		{"item missing location", func(c *Config) { c.Items = []ItemConfig{{ID: "a"}} }, true},
		{"duplicate item ids", func(c *Config) {
			c.Items = []ItemConfig{{ID: "a", Location: "/x"}, {ID: "a", Location: "/y"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if cfg.Address() != "127.0.0.1:8080" {
		t.Errorf("Address = %q", cfg.Address())
	}
}
