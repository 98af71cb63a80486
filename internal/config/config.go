package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Geo cache backends.
const (
	GeoBackendDatabase = "database"
	GeoBackendMemory   = "memory"
	GeoBackendRedis    = "redis"
)

var (
	ErrUnknownDriver     = errors.New("unknown DB_DRIVER")
	ErrMissingDSN        = errors.New("DATABASE_URL is required for postgres")
	ErrUnknownGeoBackend = errors.New("unknown GEO_CACHE_BACKEND")
	ErrInvalidProxy      = errors.New("invalid TRUSTED_PROXIES entry")
)

// SecurityConfig represents security configuration
type SecurityConfig struct {
	EnableRateLimit       bool
	RateLimitPerSecond    float64
	RateLimitBurst        int
	EnableCORS            bool
	AllowedOrigins        []string
	EnableSecurityHeaders bool
	MaxRequestSize        int64
	EnableRequestID       bool
	// TrustedProxies lists the addresses or CIDRs whose forwarding headers
	// are believed. Empty means the peer address is always the client.
	TrustedProxies []string
}

// GeoConfig configures visit geolocation.
type GeoConfig struct {
	CacheWindow   time.Duration
	CacheBackend  string
	LookupURL     string
	LookupTimeout time.Duration
	LookupRate    float64
	LookupBurst   int
}

// RedisConfig is used by the redis geo cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// VisitConfig sizes the asynchronous visit recorder.
type VisitConfig struct {
	QueueSize     int
	Workers       int
	SessionCookie string
}

type Config struct {
	Port              int
	DataDir           string
	DBDriver          string
	DatabaseURL       string
	LogLevel          string
	LogDevelopment    bool
	CacheTTL          time.Duration
	DashboardCacheTTL time.Duration
	DashboardTimezone string
	ImportInterval    time.Duration
	// Feeds maps a section name onto the feed URLs imported into it.
	Feeds         map[string][]string
	EnableSwagger bool
	EnableMetrics bool
	Geo           GeoConfig
	Redis         RedisConfig
	Visits        VisitConfig
	Security      SecurityConfig
}

// Load reads .env.local and .env when present, then the environment.
// Variables already set in the environment win over the files.
func Load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables only.
func FromEnv() *Config {
	return &Config{
		Port:              getEnvAsInt("PORT", 8080),
		DataDir:           getEnv("DATA_DIR", "./data"),
		DBDriver:          getEnv("DB_DRIVER", DriverSQLite),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogDevelopment:    getEnvAsBool("LOG_DEVELOPMENT", false),
		CacheTTL:          getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		DashboardCacheTTL: getEnvAsDuration("DASHBOARD_CACHE_TTL", time.Minute),
		DashboardTimezone: getEnv("DASHBOARD_TIMEZONE", "UTC"),
		ImportInterval:    getEnvAsDuration("IMPORT_INTERVAL", time.Hour),
		Feeds:             loadFeedsFromEnv(),
		EnableSwagger:     getEnvAsBool("ENABLE_SWAGGER", true),
		EnableMetrics:     getEnvAsBool("ENABLE_METRICS", true),
		Geo:               loadGeoConfig(),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Visits: VisitConfig{
			QueueSize:     getEnvAsInt("VISIT_QUEUE_SIZE", 1000),
			Workers:       getEnvAsInt("VISIT_WORKERS", 2),
			SessionCookie: getEnv("SESSION_COOKIE", "chasopis_sid"),
		},
		Security: loadSecurityConfig(),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.DBDriver)
	}

	switch c.Geo.CacheBackend {
	case GeoBackendDatabase, GeoBackendMemory, GeoBackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGeoBackend, c.Geo.CacheBackend)
	}

	if c.Geo.CacheWindow <= 0 {
		return errors.New("GEO_CACHE_WINDOW must be positive")
	}
	if c.Visits.QueueSize <= 0 || c.Visits.Workers <= 0 {
		return errors.New("VISIT_QUEUE_SIZE and VISIT_WORKERS must be positive")
	}
	for _, p := range c.Security.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidProxy, p)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("DASHBOARD_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves DashboardTimezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DashboardTimezone)
}

func loadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func loadGeoConfig() GeoConfig {
	return GeoConfig{
		CacheWindow:   getEnvAsDuration("GEO_CACHE_WINDOW", 24*time.Hour),
		CacheBackend:  getEnv("GEO_CACHE_BACKEND", GeoBackendDatabase),
		LookupURL:     getEnv("GEO_LOOKUP_URL", "https://ipwho.is"),
		LookupTimeout: getEnvAsDuration("GEO_LOOKUP_TIMEOUT", 5*time.Second),
		LookupRate:    getEnvAsFloat("GEO_LOOKUP_RATE", 1.0),
		LookupBurst:   getEnvAsInt("GEO_LOOKUP_BURST", 5),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableRateLimit:       getEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitPerSecond:    getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10.0),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 20),
		EnableCORS:            getEnvAsBool("ENABLE_CORS", true),
		AllowedOrigins:        getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
		EnableSecurityHeaders: getEnvAsBool("ENABLE_SECURITY_HEADERS", true),
		MaxRequestSize:        getEnvAsInt64("MAX_REQUEST_SIZE", 1<<20), // 1MB
		EnableRequestID:       getEnvAsBool("ENABLE_REQUEST_ID", true),
		TrustedProxies:        getEnvAsStringSlice("TRUSTED_PROXIES", nil),
	}
}

func loadFeedsFromEnv() map[string][]string {
	feeds := make(map[string][]string)

	// IMPORT_FEED_<SECTION>=url1,url2
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "IMPORT_FEED_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		section := strings.ToLower(strings.TrimPrefix(parts[0], "IMPORT_FEED_"))
		if urls := splitList(parts[1]); section != "" && len(urls) > 0 {
			feeds[section] = urls
		}
	}

	return feeds
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key string, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		return splitList(val)
	}
	return defaultVal
}
