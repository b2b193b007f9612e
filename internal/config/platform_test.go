package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlatformCredentialsHolder_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "platform.yml")
	content := []byte(`platform:
  messaging:
    provider: gateway
    baseURL: https://sms.example.com
    accountSID: AC123
    authToken: secret
    fromNumber: "+15550001111"
  ai:
    provider: completion
    apiKey: sk-platform
    model: concierge-1
  payment:
    provider: stripe
    secretKey: sk_test_platform
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewPlatformCredentialsHolder(Config{PlatformConfigPath: path})
	require.NoError(t, err)

	creds := holder.Get()
	assert.Equal(t, "AC123", creds.Messaging.AccountSID)
	assert.Equal(t, "+15550001111", creds.Messaging.FromNumber)
	assert.Equal(t, "sk-platform", creds.AI.APIKey)
	assert.Equal(t, "concierge-1", creds.AI.Model)
	assert.Equal(t, "sk_test_platform", creds.Payment.SecretKey)
	assert.Equal(t, "usd", creds.Payment.Currency)
}

func TestNewPlatformCredentialsHolder_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewPlatformCredentialsHolder(Config{})
	require.NoError(t, err)

	creds := holder.Get()
	assert.Equal(t, "gateway", creds.Messaging.Provider)
	assert.Equal(t, "completion", creds.AI.Provider)
	assert.Equal(t, "stripe", creds.Payment.Provider)
}

func TestLoad_RedisLedgerRequiresAddr(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	assert.Equal(t, LedgerBackendGorm, cfg.LedgerBackend)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SCHEDULER_SPEC", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.Spec)
	assert.Equal(t, 14*24, int(cfg.TrialPeriod.Hours()))
}
