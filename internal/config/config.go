package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/mada-pay/mada_pay/internal/domain"
)

const (
	defaultAppName         = "MadaPay"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"

	// BalancePolicyConvert values asset wallets in the base currency.
	BalancePolicyConvert = "convert"
	// BalancePolicyNaive sums raw balances regardless of currency.
	BalancePolicyNaive = "naive"
)

// Config captures application runtime configuration loaded from the environment
// and an optional .env file.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	BaseCurrency      string
	WithdrawalFeeRate decimal.Decimal
	WithdrawalMinimum decimal.Decimal
	InvestmentFeeRate decimal.Decimal
	InvestmentMinimum decimal.Decimal
	TransferFeeRate   decimal.Decimal
	DivestmentFeeRate decimal.Decimal

	USDRate           decimal.Decimal
	PriceCacheTTL     time.Duration
	PriceTimeout      time.Duration
	ProviderTimeout   time.Duration
	BalancePolicy     string
	WithdrawRateLimit int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return FromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault(shutdownDurationEnvVar, defaultShutdownDelay.String())
	v.SetDefault(idemTTLDurEnvVar, defaultIdempotencyTTL.String())
	v.SetDefault("BASE_CURRENCY", "MGA")
	v.SetDefault("WITHDRAWAL_FEE_RATE", "0.05")
	v.SetDefault("WITHDRAWAL_MINIMUM", "1000")
	v.SetDefault("INVESTMENT_FEE_RATE", "0.02")
	v.SetDefault("INVESTMENT_MINIMUM", "10000")
	v.SetDefault("TRANSFER_FEE_RATE", "0")
	v.SetDefault("DIVESTMENT_FEE_RATE", "0")
	v.SetDefault("USD_RATE", "4500")
	v.SetDefault("PRICE_CACHE_TTL", "5m")
	v.SetDefault("PRICE_TIMEOUT", "3s")
	v.SetDefault("PROVIDER_TIMEOUT", "15s")
	v.SetDefault("BALANCE_POLICY", BalancePolicyConvert)
	v.SetDefault("WITHDRAW_RATE_LIMIT", 10)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		AppName:           v.GetString("APP_NAME"),
		AppEnv:            strings.ToLower(v.GetString("APP_ENV")),
		Port:              v.GetString("PORT"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RedisURL:          v.GetString("REDIS_URL"),
		BaseCurrency:      strings.ToUpper(v.GetString("BASE_CURRENCY")),
		BalancePolicy:     strings.ToLower(v.GetString("BALANCE_POLICY")),
		WithdrawRateLimit: v.GetInt("WITHDRAW_RATE_LIMIT"),
	}

	var err error
	if cfg.ShutdownPeriod, err = duration(v, shutdownSecondsEnvVar, shutdownDurationEnvVar); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = duration(v, idemTTLSecondsEnvVar, idemTTLDurEnvVar); err != nil {
		return Config{}, err
	}
	for key, target := range map[string]*time.Duration{
		"PRICE_CACHE_TTL":  &cfg.PriceCacheTTL,
		"PRICE_TIMEOUT":    &cfg.PriceTimeout,
		"PROVIDER_TIMEOUT": &cfg.ProviderTimeout,
	} {
		if *target, err = time.ParseDuration(v.GetString(key)); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	for key, target := range map[string]*decimal.Decimal{
		"WITHDRAWAL_FEE_RATE": &cfg.WithdrawalFeeRate,
		"WITHDRAWAL_MINIMUM":  &cfg.WithdrawalMinimum,
		"INVESTMENT_FEE_RATE": &cfg.InvestmentFeeRate,
		"INVESTMENT_MINIMUM":  &cfg.InvestmentMinimum,
		"TRANSFER_FEE_RATE":   &cfg.TransferFeeRate,
		"DIVESTMENT_FEE_RATE": &cfg.DivestmentFeeRate,
		"USD_RATE":            &cfg.USDRate,
	} {
		if *target, err = decimal.NewFromString(v.GetString(key)); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if target.IsNegative() {
			return Config{}, fmt.Errorf("invalid %s: must not be negative", key)
		}
	}
	if !cfg.USDRate.IsPositive() {
		return Config{}, fmt.Errorf("USD_RATE must be positive")
	}

	switch cfg.BalancePolicy {
	case BalancePolicyConvert, BalancePolicyNaive:
	default:
		return Config{}, fmt.Errorf("BALANCE_POLICY must be %q or %q", BalancePolicyConvert, BalancePolicyNaive)
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// duration prefers the integer seconds variable over the Go duration string.
func duration(v *viper.Viper, secondsKey, durationKey string) (time.Duration, error) {
	if v.IsSet(secondsKey) && v.GetString(secondsKey) != "" {
		seconds := v.GetInt(secondsKey)
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s: %q", secondsKey, v.GetString(secondsKey))
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v.GetString(durationKey))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
	}
	return d, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether external stores may be replaced by in-memory ones.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}

// Policy returns the fee policy configured for this deployment.
func (c Config) Policy() domain.Policy {
	p := domain.DefaultPolicy()
	p[domain.TypeWithdrawal] = domain.FeeRule{Rate: c.WithdrawalFeeRate, Minimum: c.WithdrawalMinimum}
	p[domain.TypeInvestment] = domain.FeeRule{Rate: c.InvestmentFeeRate, Minimum: c.InvestmentMinimum}
	p[domain.TypeTransfer] = domain.FeeRule{Rate: c.TransferFeeRate, Minimum: decimal.Zero}
	p[domain.TypeDivestment] = domain.FeeRule{Rate: c.DivestmentFeeRate, Minimum: decimal.Zero}
	return p
}
