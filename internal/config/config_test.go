package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  environment: "production"
  cors_origins:
    - "https://enroll.gradnext.co"

database:
  url: "postgres://app:secret@db:5432/leads"
  max_open_conns: 20

mail:
  provider: "ses"
  from: "cohort@gradnext.co"
  send_timeout_seconds: 10
  ses:
    region: "eu-west-1"

automation:
  enabled: false
  interval_seconds: 3600

kommo:
  api_token: "kommo-token"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, []string{"https://enroll.gradnext.co"}, cfg.Server.CORSOrigins)

	assert.Equal(t, "postgres://app:secret@db:5432/leads", cfg.Database.URL)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)

	assert.Equal(t, "ses", cfg.Mail.Provider)
	assert.Equal(t, "cohort@gradnext.co", cfg.Mail.From)
	assert.Equal(t, 10*time.Second, cfg.Mail.SendTimeout())
	assert.Equal(t, "eu-west-1", cfg.Mail.SES.Region)

	assert.False(t, cfg.Automation.Enabled)
	assert.Equal(t, time.Hour, cfg.Automation.Interval())
	assert.Equal(t, 15*time.Minute, cfg.Automation.LockTTL())

	assert.True(t, cfg.Kommo.Enabled())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, "smtp", cfg.Mail.Provider)
	assert.Equal(t, 587, cfg.Mail.SMTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Mail.SendTimeout())
	assert.True(t, cfg.Automation.Enabled)
	assert.Equal(t, time.Minute, cfg.Automation.Interval())
	assert.False(t, cfg.Kommo.Enabled())
}

func TestLockTTLOutlivesSend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mail:
  send_timeout_seconds: 120
automation:
  lock_ttl_seconds: 60
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Minute, cfg.Automation.LockTTL())
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [port"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://env/leads")
	t.Setenv("MAIL_USER", "cohort@gmail.com")
	t.Setenv("MAIL_PASS", "app-password")
	t.Setenv("FRONTEND_URL", "https://a.example.com, https://b.example.com")
	t.Setenv("AUTOMATION_ENABLED", "false")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env/leads", cfg.Database.URL)
	assert.Equal(t, "cohort@gmail.com", cfg.Mail.SMTP.User)
	assert.Equal(t, "cohort@gmail.com", cfg.Mail.From, "from defaults to the SMTP user")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Automation.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	// production runs the sweep once a day unless told otherwise
	assert.Equal(t, 24*time.Hour, cfg.Automation.Interval())
}
