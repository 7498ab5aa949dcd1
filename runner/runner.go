// Package runner parses process configuration from flags and environment
// variables and assembles the application.
package runner

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	defaultAddr      = ":8080"
	defaultCachePath = "machimap.db"
	defaultCacheTTL  = 24 * time.Hour
	defaultProxyPath = "/images/proxy"
)

// Config is the full process configuration. Environment variables provide
// defaults; flags override them.
type Config struct {
	DataURL string

	// EventDataURL is the optional second dataset, the events listing.
	// Empty disables it.
	EventDataURL   string
	Addr           string
	Debug          bool
	CachePath      string
	CacheTTL       time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ImageProxyBase string

	// Position is an optional fixed "lng,lat" pair for deployments where
	// the viewer's location is known ahead of time.
	Position string
}

// ParseConfig reads MACHIMAP_* environment variables and command-line flags.
func ParseConfig() (*Config, error) {
	cfg := Config{
		DataURL:        os.Getenv("MACHIMAP_DATA_URL"),
		EventDataURL:   os.Getenv("MACHIMAP_EVENT_DATA_URL"),
		Addr:           getEnvOrDefault("MACHIMAP_ADDR", defaultAddr),
		Debug:          getEnvBool("MACHIMAP_DEBUG"),
		CachePath:      getEnvOrDefault("MACHIMAP_CACHE_PATH", defaultCachePath),
		CacheTTL:       defaultCacheTTL,
		RedisAddr:      os.Getenv("MACHIMAP_REDIS_ADDR"),
		RedisPassword:  os.Getenv("MACHIMAP_REDIS_PASSWORD"),
		ImageProxyBase: getEnvOrDefault("MACHIMAP_IMAGE_PROXY_BASE", defaultProxyPath),
		Position:       os.Getenv("MACHIMAP_POSITION"),
	}

	if v := os.Getenv("MACHIMAP_CACHE_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes < 0 {
			return nil, fmt.Errorf("invalid MACHIMAP_CACHE_TTL_MINUTES: %q", v)
		}

		cfg.CacheTTL = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("MACHIMAP_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 || db > 15 {
			return nil, fmt.Errorf("invalid MACHIMAP_REDIS_DB: %q", v)
		}

		cfg.RedisDB = db
	}

	flag.StringVar(&cfg.DataURL, "data-url", cfg.DataURL, "URL of the delimited venue dataset")
	flag.StringVar(&cfg.EventDataURL, "event-data-url", cfg.EventDataURL, "optional URL of the event dataset")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flag.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "path of the SQLite cache file")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "optional Redis cache tier (host:port)")
	flag.StringVar(&cfg.ImageProxyBase, "image-proxy-base", cfg.ImageProxyBase, "base URL image references are rewritten to")
	flag.Parse()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DataURL == "" {
		return fmt.Errorf("data URL is required (MACHIMAP_DATA_URL or -data-url)")
	}

	if !isHTTPURL(c.DataURL) {
		return fmt.Errorf("data URL must be http(s): %q", c.DataURL)
	}

	if c.EventDataURL != "" && !isHTTPURL(c.EventDataURL) {
		return fmt.Errorf("event data URL must be http(s): %q", c.EventDataURL)
	}

	if c.CachePath == "" {
		return fmt.Errorf("cache path must not be empty")
	}

	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)

	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	}

	return false
}
