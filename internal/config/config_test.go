package config

import (
	"errors"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DBDriver != DriverSQLite {
		t.Errorf("Expected default driver %s, got %s", DriverSQLite, cfg.DBDriver)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("Expected default cache TTL 5m, got %v", cfg.CacheTTL)
	}
	if cfg.Geo.CacheWindow != 24*time.Hour {
		t.Errorf("Expected default geo cache window 24h, got %v", cfg.Geo.CacheWindow)
	}
	if cfg.Geo.CacheBackend != GeoBackendDatabase {
		t.Errorf("Expected default geo backend %s, got %s", GeoBackendDatabase, cfg.Geo.CacheBackend)
	}
	if cfg.Visits.SessionCookie != "chasopis_sid" {
		t.Errorf("Expected default session cookie, got %s", cfg.Visits.SessionCookie)
	}
	if !cfg.EnableSwagger || !cfg.EnableMetrics {
		t.Error("Expected swagger and metrics enabled by default")
	}
	if len(cfg.Security.TrustedProxies) != 0 {
		t.Errorf("Expected no trusted proxies by default, got %v", cfg.Security.TrustedProxies)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestFromEnv_EnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("GEO_CACHE_WINDOW", "12h")
	t.Setenv("GEO_CACHE_BACKEND", "redis")
	t.Setenv("VISIT_WORKERS", "4")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("DASHBOARD_TIMEZONE", "Europe/Minsk")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg := FromEnv()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("Expected cache TTL 30m, got %v", cfg.CacheTTL)
	}
	if cfg.Geo.CacheWindow != 12*time.Hour {
		t.Errorf("Expected geo window 12h, got %v", cfg.Geo.CacheWindow)
	}
	if cfg.Geo.CacheBackend != GeoBackendRedis {
		t.Errorf("Expected redis backend, got %s", cfg.Geo.CacheBackend)
	}
	if cfg.Visits.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Visits.Workers)
	}
	if cfg.EnableMetrics {
		t.Error("Expected metrics disabled")
	}
	if got := cfg.Security.TrustedProxies; len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.168.1.10" {
		t.Errorf("Expected two trusted proxies, got %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("CACHE_TTL", "soon")

	cfg := FromEnv()
	if cfg.Port != 8080 {
		t.Errorf("Expected fallback port 8080, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("Expected fallback cache TTL 5m, got %v", cfg.CacheTTL)
	}
}

func TestLoadFeedsFromEnv(t *testing.T) {
	t.Setenv("IMPORT_FEED_CULTURE", "https://a.example/rss, https://b.example/atom")
	t.Setenv("IMPORT_FEED_EMPTY", " , ")

	feeds := loadFeedsFromEnv()

	urls, ok := feeds["culture"]
	if !ok {
		t.Fatal("Expected culture section to be configured")
	}
	if len(urls) != 2 || urls[1] != "https://b.example/atom" {
		t.Errorf("Unexpected urls: %v", urls)
	}
	if _, ok := feeds["empty"]; ok {
		t.Error("Expected section without urls to be skipped")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, ErrUnknownDriver},
		{"postgres without dsn", func(c *Config) { c.DBDriver = DriverPostgres }, ErrMissingDSN},
		{"unknown geo backend", func(c *Config) { c.Geo.CacheBackend = "disk" }, ErrUnknownGeoBackend},
		{"bad trusted proxy", func(c *Config) { c.Security.TrustedProxies = []string{"10.0.0.0/8", "proxy.local"} }, ErrInvalidProxy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	cfg := FromEnv()
	cfg.Geo.CacheWindow = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero geo window")
	}

	cfg = FromEnv()
	cfg.DashboardTimezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown timezone")
	}

	cfg = FromEnv()
	cfg.DBDriver = DriverPostgres
	cfg.DatabaseURL = "postgres://localhost/chasopis?sslmode=disable"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
