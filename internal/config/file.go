package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort          string   `yaml:"server_port"`
	UserAgent           string   `yaml:"user_agent"`
	Timeout             string   `yaml:"timeout"`
	ProbeTimeout        string   `yaml:"probe_timeout"`
	PlaylistBaseURL     string   `yaml:"playlist_base_url"`
	ChannelIndexURL     string   `yaml:"channel_index_url"`
	LanguageIndexURL    string   `yaml:"language_index_url"`
	CountryIndexURL     string   `yaml:"country_index_url"`
	CacheTTL            string   `yaml:"cache_ttl"`
	ValidateConcurrency int      `yaml:"validate_concurrency"`
	MaxPageSize         int      `yaml:"max_page_size"`
	DataDir             string   `yaml:"data_dir"`
	DatabaseURL         string   `yaml:"database_url"`
	MigrationsPath      string   `yaml:"migrations_path"`
	RedisURL            string   `yaml:"redis_url"`
	ManifestCacheTTL    string   `yaml:"manifest_cache_ttl"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	LogLevel            string   `yaml:"log_level"`
}

// LoadFromFile loads config from a YAML file. Keys left out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c := Defaults()
	for _, s := range []struct {
		src string
		dst *string
	}{
		{f.ServerPort, &c.ServerPort},
		{f.UserAgent, &c.UserAgent},
		{f.PlaylistBaseURL, &c.PlaylistBaseURL},
		{f.ChannelIndexURL, &c.ChannelIndexURL},
		{f.LanguageIndexURL, &c.LanguageIndexURL},
		{f.CountryIndexURL, &c.CountryIndexURL},
		{f.DataDir, &c.DataDir},
		{f.DatabaseURL, &c.DatabaseURL},
		{f.MigrationsPath, &c.MigrationsPath},
		{f.RedisURL, &c.RedisURL},
		{f.LogLevel, &c.LogLevel},
	} {
		if s.src != "" {
			*s.dst = s.src
		}
	}
	for _, d := range []struct {
		key string
		src string
		dst *time.Duration
	}{
		{"timeout", f.Timeout, &c.Timeout},
		{"probe_timeout", f.ProbeTimeout, &c.ProbeTimeout},
		{"cache_ttl", f.CacheTTL, &c.CacheTTL},
		{"manifest_cache_ttl", f.ManifestCacheTTL, &c.ManifestCacheTTL},
	} {
		if err := setDuration(d.key, d.src, d.dst); err != nil {
			return nil, err
		}
	}
	if f.ValidateConcurrency != 0 {
		c.ValidateConcurrency = f.ValidateConcurrency
	}
	if f.MaxPageSize != 0 {
		c.MaxPageSize = f.MaxPageSize
	}
	if f.AllowedOrigins != nil {
		c.AllowedOrigins = f.AllowedOrigins
	}

	c.fillIndexURLs()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
