package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("RATE_LIMIT_ENABLED", "off")
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("FRONTEND_URL", "https://app.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.False(t, cfg.RateLimitEnabled)
	assert.Equal(t, "eur", cfg.Stripe.DefaultCurrency)
	assert.Equal(t, "https://app.example.com/sessions/check-in/", cfg.QRBaseURL)
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"PROD":    "production",
		" stage ": "staging",
		"testing": "test",
		"custom":  "custom",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeEnv(in), in)
	}
}
