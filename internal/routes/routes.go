package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kobo-pay/kobo_pay/internal/auth"
	"github.com/kobo-pay/kobo_pay/internal/config"
	"github.com/kobo-pay/kobo_pay/internal/deposits"
	"github.com/kobo-pay/kobo_pay/internal/identity"
	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/middleware"
	"github.com/kobo-pay/kobo_pay/internal/notification"
	"github.com/kobo-pay/kobo_pay/internal/payments"
	"github.com/kobo-pay/kobo_pay/internal/paystack"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Backends. Dev runs without Postgres use a single in-memory engine that
	// serves both the ledger and the wallet repository.
	var (
		ledgerBackend ledger.Ledger
		walletRepo    wallet.Repository
		identityRepo  identity.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB, d.Logger)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		mem := ledger.NewInMemory()
		ledgerBackend = mem
		walletRepo = mem
		identityRepo = identity.NewMemoryRepository()
	}

	walletSvc := wallet.NewService(walletRepo, d.Cfg.Currency)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	notifier := notification.NewLoggerNotifier(d.Logger)

	var gateway paystack.Gateway
	if d.Cfg.PaystackSecretKey != "" {
		gateway = paystack.NewClient(d.Cfg.PaystackBaseURL, d.Cfg.PaystackSecretKey, d.Cfg.AppURL+"/api/v1/wallet/deposit/callback")
	} else {
		gateway = paystack.StaticGateway{}
	}

	paymentSvc := payments.NewService(ledgerBackend, notifier)
	paymentHandler := payments.NewHandler(paymentSvc)
	depositSvc := deposits.NewService(ledgerBackend, walletSvc, identitySvc, gateway, notifier)
	depositHandler := deposits.NewHandler(depositSvc, gateway, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identitySvc, walletSvc, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	RegisterDepositCallbackRoutes(api, depositHandler)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(authSvc))
	RegisterWalletRoutes(protected, ledgerBackend)
	RegisterPaymentRoutes(protected, paymentHandler)
	RegisterDepositRoutes(protected, depositHandler)

	return nil
}
