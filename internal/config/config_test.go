package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LISTEN_ADDR", "DATABASE_DRIVER", "OTP_TTL", "CORS_ORIGINS", "RATE_LIMIT_REQUESTS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, ":5000", cfg.ListenAddr)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 10*time.Minute, cfg.OTPTTL)
	require.Equal(t, 100, cfg.RateLimitRequests)
	require.Contains(t, cfg.CORSOrigins, "http://localhost:3000")
	require.False(t, cfg.SMTP.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("JWT_TTL", "not-a-duration")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "587")

	cfg := Load()
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.True(t, cfg.SMTP.Enabled())
	require.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MINDFUL_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MINDFUL_DOTENV_PROBE") })

	require.True(t, LoadDotEnv(path))
	require.Equal(t, "loaded", os.Getenv("MINDFUL_DOTENV_PROBE"))
	require.False(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
