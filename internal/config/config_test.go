package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mada-pay/mada_pay/internal/domain"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "MadaPay", cfg.AppName)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "MGA", cfg.BaseCurrency)
	assert.Equal(t, 10*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, BalancePolicyConvert, cfg.BalancePolicy)
	assert.True(t, cfg.USDRate.Equal(decimal.NewFromInt(4500)))

	rule := cfg.Policy().Rule(domain.TypeWithdrawal)
	assert.True(t, rule.Rate.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, rule.Minimum.Equal(decimal.NewFromInt(1000)))
}

func TestFromViper_RequiresStoresOutsideDevelopment(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	_, err := FromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	v.Set("DATABASE_URL", "postgres://localhost/mada")
	_, err = FromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")

	v.Set("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("SHUTDOWN_TIMEOUT_SECONDS", "3")
	v.Set("IDEMPOTENCY_TTL", "1h")
	v.Set("WITHDRAWAL_FEE_RATE", "0.03")
	v.Set("PORT", ":9090")
	v.Set("BALANCE_POLICY", "NAIVE")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, BalancePolicyNaive, cfg.BalancePolicy)
	assert.True(t, cfg.Policy().Rule(domain.TypeWithdrawal).Rate.Equal(decimal.RequireFromString("0.03")))
}

func TestFromViper_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PRICE_TIMEOUT":       "soon",
		"WITHDRAWAL_FEE_RATE": "five percent",
		"INVESTMENT_MINIMUM":  "-1",
		"USD_RATE":            "0",
		"BALANCE_POLICY":      "average",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, value)
			_, err := FromViper(v)
			assert.Error(t, err)
		})
	}
}
