package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "DEV")
	t.Setenv("PAYMENT_CURRENCY", "THB")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://desk.example,https://pro.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "thb", cfg.PaymentCurrency)
	assert.Equal(t, 20*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 2*time.Minute, cfg.DraftLeaseTTL)
	assert.Equal(t, []string{"https://desk.example", "https://pro.example"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.ProdLike())
}

func TestLoadProdRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	_, err = Load()
	assert.ErrorContains(t, err, "OMISE")

	t.Setenv("OMISE_PUBLIC_KEY", "pkey_test")
	t.Setenv("OMISE_SECRET_KEY", "skey_test")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ProdLike())
}

func TestHoldMustOutlastPayment(t *testing.T) {
	t.Setenv("PAYMENT_TIMEOUT", "90s")
	_, err := Load()
	assert.ErrorContains(t, err, "SETTLEMENT_HOLD_TTL")
}
