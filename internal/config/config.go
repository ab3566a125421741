package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultPlaylistBaseURL is where the upstream channel and taxonomy indexes live.
const DefaultPlaylistBaseURL = "https://iptv-org.github.io/iptv"

// Config holds application configuration.
type Config struct {
	ServerPort string

	UserAgent    string
	Timeout      time.Duration // manifest and index fetches
	ProbeTimeout time.Duration // each stream probe attempt

	PlaylistBaseURL  string
	ChannelIndexURL  string
	LanguageIndexURL string
	CountryIndexURL  string

	CacheTTL            time.Duration
	ValidateConcurrency int
	MaxPageSize         int

	DataDir        string
	DatabaseURL    string // optional; taxonomy snapshots go to DataDir without it
	MigrationsPath string
	RedisURL       string // optional
	// ManifestCacheTTL is how long fetched manifest text is kept in Redis.
	ManifestCacheTTL time.Duration

	AllowedOrigins []string
	LogLevel       string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ServerPort:          "8000",
		UserAgent:           "LuluTV/1.0",
		Timeout:             20 * time.Second,
		ProbeTimeout:        12 * time.Second,
		PlaylistBaseURL:     DefaultPlaylistBaseURL,
		CacheTTL:            30 * time.Minute,
		ValidateConcurrency: 10,
		MaxPageSize:         500,
		DataDir:             "data",
		MigrationsPath:      "file://migrations",
		ManifestCacheTTL:    5 * time.Minute,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:5174",
			"http://localhost:8000",
			"https://lulu-tv.netlify.app",
		},
		LogLevel: "info",
	}
}

// Load builds config from environment variables, after loading .env.local
// and .env (existing variables win).
func Load() (*Config, error) {
	loadEnvFiles()
	c := Defaults()

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("SERVER_PORT", &c.ServerPort)
	str("USER_AGENT", &c.UserAgent)
	str("PLAYLIST_BASE_URL", &c.PlaylistBaseURL)
	str("CHANNEL_INDEX_URL", &c.ChannelIndexURL)
	str("LANGUAGE_INDEX_URL", &c.LanguageIndexURL)
	str("COUNTRY_INDEX_URL", &c.CountryIndexURL)
	str("DATA_DIR", &c.DataDir)
	str("DATABASE_URL", &c.DatabaseURL)
	str("MIGRATIONS_PATH", &c.MigrationsPath)
	str("REDIS_URL", &c.RedisURL)
	str("LOG_LEVEL", &c.LogLevel)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	for key, dst := range map[string]*time.Duration{
		"FETCH_TIMEOUT":      &c.Timeout,
		"PROBE_TIMEOUT":      &c.ProbeTimeout,
		"CACHE_TTL":          &c.CacheTTL,
		"MANIFEST_CACHE_TTL": &c.ManifestCacheTTL,
	} {
		if err := setDuration(key, os.Getenv(key), dst); err != nil {
			return nil, err
		}
	}
	for key, dst := range map[string]*int{
		"VALIDATE_CONCURRENCY": &c.ValidateConcurrency,
		"MAX_PAGE_SIZE":        &c.MaxPageSize,
	} {
		if err := setInt(key, os.Getenv(key), dst); err != nil {
			return nil, err
		}
	}

	c.fillIndexURLs()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// fillIndexURLs derives unset index URLs from PlaylistBaseURL.
func (c *Config) fillIndexURLs() {
	base := strings.TrimRight(c.PlaylistBaseURL, "/")
	if c.ChannelIndexURL == "" {
		c.ChannelIndexURL = base + "/index.m3u"
	}
	if c.LanguageIndexURL == "" {
		c.LanguageIndexURL = base + "/index.language.m3u"
	}
	if c.CountryIndexURL == "" {
		c.CountryIndexURL = base + "/index.country.m3u"
	}
}

// Validate checks ranges and URLs.
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.ServerPort); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%w: %q", ErrInvalidPort, c.ServerPort)
	}
	if c.Timeout <= 0 || c.ProbeTimeout <= 0 || c.CacheTTL <= 0 || c.ManifestCacheTTL <= 0 {
		return ErrInvalidDuration
	}
	if c.ValidateConcurrency < 1 || c.ValidateConcurrency > 200 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.ValidateConcurrency)
	}
	if c.MaxPageSize < 1 || c.MaxPageSize > 500 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, c.MaxPageSize)
	}
	for _, raw := range []string{c.ChannelIndexURL, c.LanguageIndexURL, c.CountryIndexURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
	}
	return nil
}

func setDuration(key, raw string, dst *time.Duration) error {
	if raw = strings.TrimSpace(raw); raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, raw)
	}
	*dst = d
	return nil
}

func setInt(key, raw string, dst *int) error {
	if raw = strings.TrimSpace(raw); raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidNumber, key, raw)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
