package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://pods.example.com/")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, "https://pods.example.com", cfg.PublicBaseURL)
	assert.Contains(t, cfg.OwnHosts, "pods.example.com")
	assert.Contains(t, cfg.OwnHosts, "localhost:8080")
	assert.Equal(t, int64(500<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "de", cfg.FeedLanguage)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:podhost.db")
	t.Setenv("OWN_HOSTS", "a.example.com, b.example.com")
	t.Setenv("PLAY_REFERER_ALLOW", "pods.example.com")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, []string{"a.example.com", "b.example.com", "localhost:8080"}, cfg.OwnHosts)
	assert.Equal(t, []string{"pods.example.com"}, cfg.PlayRefererAllow)
	assert.Equal(t, 3, cfg.RateLimitBurst)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabaseDriver: "postgres"}
	assert.Error(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://localhost/podhost"
	assert.NoError(t, cfg.Validate())

	cfg.DatabaseDriver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestInvalidBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "not a url")
	_, err := FromEnv()
	assert.Error(t, err)
}
