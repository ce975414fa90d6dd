package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mada-pay/mada_pay/internal/config"
	"github.com/mada-pay/mada_pay/internal/identity"
	"github.com/mada-pay/mada_pay/internal/investment"
	"github.com/mada-pay/mada_pay/internal/ledger"
	"github.com/mada-pay/mada_pay/internal/middleware"
	"github.com/mada-pay/mada_pay/internal/mobilemoney"
	"github.com/mada-pay/mada_pay/internal/notification"
	"github.com/mada-pay/mada_pay/internal/payments"
	"github.com/mada-pay/mada_pay/internal/pricing"
	"github.com/mada-pay/mada_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development; Prices and Payouts default to static adapters.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Prices  pricing.Source
	Payouts mobilemoney.Provider
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		store ledger.Store
		users identity.Repository
	)
	if d.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ledger.Migrate(ctx, d.DB); err != nil {
			return err
		}
		store = ledger.NewPostgresStore(d.DB)
		users = identity.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("DATABASE_URL not set, using in-memory ledger")
		store = ledger.NewInMemory()
		users = identity.NewMemoryRepository()
	}

	prices := d.Prices
	if prices == nil {
		prices = pricing.NewStaticSource(d.Cfg.USDRate)
	}
	prices = pricing.WithTimeout(prices, d.Cfg.PriceTimeout)
	if d.Cache != nil {
		prices = pricing.NewCachedSource(prices, d.Cache, d.Cfg.PriceCacheTTL, d.Logger)
	}
	payouts := d.Payouts
	if payouts == nil {
		payouts = mobilemoney.StaticProvider{}
	}

	policy := d.Cfg.Policy()
	notifier := notification.NewLoggerNotifier(d.Logger)

	walletSvc := wallet.NewService(store, prices, wallet.Settings{
		BaseCurrency:  d.Cfg.BaseCurrency,
		BalancePolicy: d.Cfg.BalancePolicy,
	}, d.Logger)
	identitySvc := identity.NewService(users, d.Logger)
	paymentSvc := payments.NewService(store, policy, notifier, d.Logger)
	mobileSvc := mobilemoney.NewService(store, payouts, policy, notifier, d.Logger, d.Cfg.ProviderTimeout)
	investmentSvc := investment.NewService(store, prices, policy, notifier, d.Logger)

	idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	withdrawLimit := middleware.RateLimit(d.Cache, middleware.RateLimitConfig{
		Prefix: "rl:withdraw:",
		Limit:  d.Cfg.WithdrawRateLimit,
		Window: time.Minute,
		Key:    middleware.ByParam("walletId"),
	}, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDOf(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identity.NewHandler(identitySvc, walletSvc))
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterPaymentRoutes(api, payments.NewHandler(paymentSvc), idem)
	RegisterMobileMoneyRoutes(api, mobilemoney.NewHandler(mobileSvc), idem, withdrawLimit)
	RegisterInvestmentRoutes(api, investment.NewHandler(investmentSvc), idem)

	return nil
}
