package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/quickcart/internal/config"
)

var keys = []string{
	"QUICKCART_CONFIG", "PORT", "API_BASE_URL", "API_TIMEOUT", "GATEWAY_API_PREFIX",
	"GATEWAY_SCRIPT_URL", "STORE_DRIVER", "REDIS_URL", "DB_DSN", "DB_HOST", "DB_NAME",
	"STORE_TTL", "STORE_RETENTION", "PLATFORM_FEE", "CHECKOUT_CLEAR_BAG",
	"SESSION_IDLE_TTL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "COOKIE_SECURE",
	"LOG_LEVEL", "LOG_PRETTY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, "/payments/razorpay", cfg.GatewayAPIPrefix)
	assert.Equal(t, config.StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "10", cfg.PlatformFee.String())
	assert.True(t, cfg.CheckoutClearBag)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "quickcart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"9000\"\nSTORE_DRIVER: postgres\nDB_HOST: db\nAPI_TIMEOUT: 5s\n"), 0o600))
	t.Setenv("QUICKCART_CONFIG", path)
	t.Setenv("PORT", "9100")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.Equal(t, config.StorePostgres, cfg.StoreDriver)
	assert.Contains(t, cfg.DBDSN, "host=db")
	assert.Contains(t, cfg.DBDSN, "dbname=quickcart")
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"API_TIMEOUT":        "soon",
		"RATE_LIMIT_BURST":   "many",
		"CHECKOUT_CLEAR_BAG": "maybe",
		"PLATFORM_FEE":       "ten",
		"STORE_DRIVER":       "sqlite",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := config.Load()
			assert.ErrorContains(t, err, key)
		})
	}
}
