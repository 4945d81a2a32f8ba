package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/auth"
	"github.com/tulip-app/tulip/internal/catalog"
	"github.com/tulip-app/tulip/internal/config"
	"github.com/tulip-app/tulip/internal/middleware"
	"github.com/tulip-app/tulip/internal/notification"
	"github.com/tulip-app/tulip/internal/product"
	"github.com/tulip-app/tulip/internal/quota"
	"github.com/tulip-app/tulip/internal/saved"
	"github.com/tulip-app/tulip/internal/scan"
	"github.com/tulip-app/tulip/internal/scanlog"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database
// the in-memory stores and the fixture resolver stand in, which only dev mode
// allows.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Stores
	var accountRepo account.Repository
	var productRepo product.Repository
	var scanlogRepo scanlog.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		productRepo = product.NewPostgresRepository(d.DB)
		scanlogRepo = scanlog.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		productRepo = product.NewMemoryRepository()
		scanlogRepo = scanlog.NewMemoryRepository()
	}
	if d.Cache != nil {
		productRepo = product.NewCachedRepository(productRepo, d.Cache, d.Cfg.ProductCacheTTL, d.Logger)
	}

	var resolver catalog.Resolver
	if d.Cfg.IsDev() && d.Cfg.CatalogBaseURL == "" {
		resolver = catalog.StaticResolver{}
	} else {
		resolver = catalog.NewOpenFoodFactsClient(d.Cfg.CatalogBaseURL, d.Cfg.CatalogTimeout, d.Logger)
	}

	// Services and handlers
	tracker := quota.NewTracker(accountRepo)
	accountSvc := account.NewService(accountRepo)
	tokenSvc := auth.NewService(d.Cfg)
	notifier := notification.NewLoggerNotifier(d.Logger)
	historySvc := scanlog.NewService(scanlogRepo, productRepo, d.Logger)
	scanSvc := scan.NewService(accountRepo, tracker, productRepo, resolver, historySvc, d.Logger)
	registry := saved.NewRegistry(accountRepo, productRepo)

	authHandler := auth.NewHandler(accountSvc, tokenSvc, tracker, notifier)
	scanHandler := scan.NewHandler(scanSvc)
	savedHandler := saved.NewHandler(registry)
	historyHandler := scanlog.NewHandler(historySvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimitPerMin)
	jwtmw := middleware.JWTAuth(d.Cfg, accountRepo)
	RegisterAuthRoutes(api, authHandler, rateLimiter, jwtmw)

	protected := api.Group("", jwtmw)
	RegisterProductRoutes(protected, scanHandler, savedHandler)

	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterScanRoutes(protected, historyHandler, idem)

	return nil
}
