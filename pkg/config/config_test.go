package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10.0, cfg.Bundle.HoursPerCredit)
	assert.InDelta(t, 0.2, cfg.Bundle.Tolerance, 1e-9)
	assert.False(t, cfg.Bundle.CloneKeepsCertificates)
	assert.Equal(t, "mail_sending", cfg.Mail.QueueKey)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOURS_PER_CREDIT", "12")
	t.Setenv("JWT_EXPIRATION", "90m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SMTP_USERNAME", "noreply@example.edu")
	t.Setenv("API_PREFIX", "/api/v1/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.Bundle.HoursPerCredit)
	assert.Equal(t, 90*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "noreply@example.edu", cfg.Mail.From)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
}

func TestLoadRejectsToleranceOutOfRange(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TOTAL_COURSE_TIME_TOLERANCE", "1.5")

	_, err := Load()
	require.Error(t, err)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
