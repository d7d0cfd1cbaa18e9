package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mutige-mungos/mungo-shift/internal/upstream"
)

const (
	MinCacheTTL = 5 * time.Minute
	MaxCacheTTL = 15 * time.Minute

	defaultPort            = "8080"
	defaultSiteURL         = "https://example.com"
	defaultUpstreamTimeout = 30 * time.Second
)

type Config struct {
	Port                     string
	UpstreamURL              string
	CacheTTL                 time.Duration
	UpstreamTimeout          time.Duration
	DatabaseURL              string
	ProjectID                string
	FirestoreCredentialsFile string
	DiscordWebhookURL        string
	CronSecret               string
	SiteURL                  string
	// Location is the zone in which expiry days are counted.
	Location *time.Location
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Environment
// variables override every key.
type fileConfig struct {
	Port                     string `yaml:"port"`
	UpstreamURL              string `yaml:"upstream_url"`
	UpstreamCacheTTLMS       string `yaml:"upstream_cache_ttl_ms"`
	UpstreamTimeout          string `yaml:"upstream_timeout"`
	DatabaseURL              string `yaml:"database_url"`
	ProjectID                string `yaml:"google_cloud_project"`
	FirestoreCredentialsFile string `yaml:"firestore_credentials_file"`
	DiscordWebhookURL        string `yaml:"discord_webhook_url"`
	CronSecret               string `yaml:"cron_secret"`
	SiteURL                  string `yaml:"site_url"`
	ExpiryTimezone           string `yaml:"expiry_timezone"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded .env file")
	}

	var file fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &file); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	port := lookup("PORT", file.Port)
	if port == "" {
		port = defaultPort
		slog.Info("Defaulting to port", "port", port)
	}

	upstreamURL := lookup("UPSTREAM_URL", file.UpstreamURL)
	if upstreamURL == "" {
		upstreamURL = upstream.DefaultURL
	}

	upstreamTimeout := defaultUpstreamTimeout
	if v := lookup("UPSTREAM_TIMEOUT", file.UpstreamTimeout); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT %q: %w", v, err)
		}
		upstreamTimeout = parsed
	}

	location := time.Local
	if v := lookup("EXPIRY_TIMEZONE", file.ExpiryTimezone); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("invalid EXPIRY_TIMEZONE %q: %w", v, err)
		}
		location = loc
	}

	discordWebhookURL := lookup("DISCORD_WEBHOOK_URL", file.DiscordWebhookURL)
	if discordWebhookURL == "" {
		slog.Warn("DISCORD_WEBHOOK_URL not set, Discord notifications will be skipped")
	}

	cronSecret := lookup("CRON_SECRET", file.CronSecret)
	if cronSecret == "" {
		slog.Warn("CRON_SECRET not set, the cron endpoint is open")
	}

	siteURL := lookup("SITE_URL", file.SiteURL)
	if siteURL == "" {
		siteURL = defaultSiteURL
	}

	return &Config{
		Port:                     port,
		UpstreamURL:              upstreamURL,
		CacheTTL:                 ResolveCacheTTL(lookup("UPSTREAM_CACHE_TTL_MS", file.UpstreamCacheTTLMS)),
		UpstreamTimeout:          upstreamTimeout,
		DatabaseURL:              lookup("DATABASE_URL", file.DatabaseURL),
		ProjectID:                lookup("GOOGLE_CLOUD_PROJECT", file.ProjectID),
		FirestoreCredentialsFile: lookup("FIRESTORE_CREDENTIALS_FILE", file.FirestoreCredentialsFile),
		DiscordWebhookURL:        discordWebhookURL,
		CronSecret:               cronSecret,
		SiteURL:                  siteURL,
		Location:                 location,
	}, nil
}

// ResolveCacheTTL reads a TTL in milliseconds and clamps it to
// [MinCacheTTL, MaxCacheTTL]. Empty or non-numeric input gives MinCacheTTL.
func ResolveCacheTTL(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MinCacheTTL
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("Invalid UPSTREAM_CACHE_TTL_MS, using default", "value", raw, "default", MinCacheTTL)
		return MinCacheTTL
	}
	ms = min(max(ms, MinCacheTTL.Milliseconds()), MaxCacheTTL.Milliseconds())
	return time.Duration(ms) * time.Millisecond
}

// lookup returns the environment value for key, or fallback when unset.
func lookup(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}
