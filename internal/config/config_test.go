package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.KIS.AppKey = "test-key"
	cfg.KIS.AppSecret = "test-secret"
	cfg.KIS.AccountNo = "12345678-01"
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresKISCredentials(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_key")
	assert.Contains(t, err.Error(), "app_secret")
	assert.Contains(t, err.Error(), "account_no")
}

func TestValidateAccountNoFormat(t *testing.T) {
	tests := []struct {
		accountNo string
		valid     bool
	}{
		{"12345678-01", true},
		{"1234567-01", false},
		{"12345678-1", false},
		{"12345678_01", false},
		{"1234567a-01", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, validAccountNo(tt.accountNo), "account_no %q", tt.accountNo)
	}
}

func TestValidateSchedulerDailyTime(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Mode = "daily"
	cfg.Scheduler.At = "25:99"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "verbose"
	cfg.Server.Port = 0
	cfg.Engine.CallTimeout.Duration = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "server")
	assert.Contains(t, err.Error(), "call_timeout")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"

[kis]
app_key = "file-key"
app_secret = "file-secret"
account_no = "12345678-01"
paper = true

[engine]
call_timeout = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "file-key", cfg.KIS.AppKey)
	assert.True(t, cfg.KIS.Paper)
	assert.Equal(t, 30*time.Second, cfg.Engine.CallTimeout.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, "Asia/Seoul", cfg.Market.Timezone)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[kis]
app_key = "file-key"
`), 0o600))

	t.Setenv("KISBOT_KIS_APP_KEY", "env-key")
	t.Setenv("KISBOT_SERVER_PORT", "9000")
	t.Setenv("KISBOT_SCHEDULER_INTERVAL", "45s")
	t.Setenv("KISBOT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.KIS.AppKey)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.Interval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.KIS.AppKey)
	assert.Equal(t, "***", red.KIS.AppSecret)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// The original is untouched.
	assert.Equal(t, "test-key", cfg.KIS.AppKey)
	// Non-secret fields survive.
	assert.Equal(t, "12345678-01", red.KIS.AccountNo)
}
