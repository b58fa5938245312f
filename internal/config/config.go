package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the server, worker, scheduler and CLI read from
// the environment.
type Config struct {
	Port           string `mapstructure:"port"`
	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseURL    string `mapstructure:"database_url"`
	UploadsDir     string `mapstructure:"uploads_dir"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	// OwnHosts lists the hostnames (with optional port) that URL
	// normalization treats as this deployment.
	OwnHosts         []string `mapstructure:"own_hosts"`
	FeedLanguage     string   `mapstructure:"feed_language"`
	CatalogTitle     string   `mapstructure:"catalog_title"`
	PlayRefererAllow []string `mapstructure:"play_referer_allow"`
	RedisAddr        string   `mapstructure:"redis_addr"`

	YouTubeClientID     string `mapstructure:"youtube_client_id"`
	YouTubeClientSecret string `mapstructure:"youtube_client_secret"`
	YouTubeRedirectURL  string `mapstructure:"youtube_redirect_url"`
	FFmpegPath          string `mapstructure:"ffmpeg_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	MaxUploadBytes int64   `mapstructure:"max_upload_bytes"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("database_url", "")
	v.SetDefault("uploads_dir", "uploads")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("own_hosts", []string{"localhost:8080", "127.0.0.1:8080"})
	v.SetDefault("feed_language", "de")
	v.SetDefault("catalog_title", "All Podcasts")
	v.SetDefault("play_referer_allow", []string{"localhost:3000", "/podcasts", "/community"})
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("youtube_client_id", "")
	v.SetDefault("youtube_client_secret", "")
	v.SetDefault("youtube_redirect_url", "http://localhost:8080/api/youtube/callback")
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("max_upload_bytes", int64(500<<20))
	v.SetDefault("rate_limit_rps", 5.0)
	v.SetDefault("rate_limit_burst", 20)
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.OwnHosts = splitList(cfg.OwnHosts)
	cfg.PlayRefererAllow = splitList(cfg.PlayRefererAllow)

	base, err := url.Parse(cfg.PublicBaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid PUBLIC_BASE_URL %q", cfg.PublicBaseURL)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if !contains(cfg.OwnHosts, base.Host) {
		cfg.OwnHosts = append(cfg.OwnHosts, base.Host)
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	return nil
}

// YouTubeEnabled reports whether OAuth credentials are configured.
func (c *Config) YouTubeEnabled() bool {
	return c.YouTubeClientID != "" && c.YouTubeClientSecret != ""
}

// splitList flattens comma separated entries, since values coming from a
// single environment variable arrive as one element.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
