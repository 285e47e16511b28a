package main

import (
	"database/sql"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/config"
	"github.com/MALKOO0044/shopixo-sub004/internal/http/handlers"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	userRepo := repos.NewUserRepo(db)
	auditRepo := repos.NewAuditRepo(db)
	settingsRepo := repos.NewSettingsRepo(db)
	tokenRepo := repos.NewTokenRepo(db)
	authSvc := services.NewAuthService(userRepo, auditRepo)

	// Supplier client. Credentials prefer the settings store so they can be
	// rotated from the back office; env vars are the fallback.
	supplier := cj.NewClient(cj.Config{
		BaseURL: cfg.CJAPIBase,
		Credentials: func() (string, string, error) {
			var creds repos.CJCredentials
			err := settingsRepo.Get(repos.SettingCJCredentials, &creds)
			if err == nil && creds.Email != "" && creds.APIKey != "" {
				return creds.Email, creds.APIKey, nil
			}
			if err != nil && !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, repos.ErrTablesMissing) {
				return "", "", err
			}
			if cfg.CJEmail == "" || cfg.CJAPIKey == "" {
				return "", "", errors.New("cj credentials not configured")
			}
			return cfg.CJEmail, cfg.CJAPIKey, nil
		},
	}, tokenRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok": false, "error": "internal error",
			})
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	// Attach user to context if logged in
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.Current(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			// Webhooks and cron carry their own auth and may burst.
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/api/cj/webhook") ||
				strings.HasPrefix(p, "/api/payment/webhook") ||
				strings.HasPrefix(p, "/api/admin/cron/")
		},
	}))

	deps := handlers.NewDeps(db, cfg, authSvc, supplier)
	authH := &handlers.AuthHandler{Auth: authSvc}

	// ---------- Storefront ----------
	app.Get("/api/categories", deps.CatalogHandler.Categories)
	app.Get("/api/products", deps.CatalogHandler.List)
	app.Get("/api/products/:slug", deps.CatalogHandler.Detail)
	app.Get("/api/availability", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"ok": false, "error": "rate limit exceeded, retry soon"})
		},
	}), deps.InventoryHandler.Check)

	app.Get("/api/cart", deps.CartHandler.View)
	app.Post("/api/cart", deps.CartHandler.Add)
	app.Delete("/api/cart", deps.CartHandler.Clear)

	app.Post("/api/orders", deps.OrderHandler.Place)
	app.Get("/api/orders/:id", deps.OrderHandler.View)
	app.Get("/api/orders", handlers.RequireUser(authSvc), deps.OrderHandler.History)

	app.Post("/api/cj/shipping/calc", limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	}), deps.ShippingHandler.Calc)

	// ---------- Auth (login throttled) ----------
	app.Post("/api/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"ok": false, "error": "too many attempts"})
		},
	}), authH.Login)
	app.Post("/api/password", handlers.RequireUser(authSvc), authH.ChangePassword)
	app.Post("/api/logout", authH.Logout)
	app.Get("/api/me", authH.Me)

	// ---------- Webhooks ----------
	app.Post("/api/cj/webhook", deps.WebhookHandler.CJ)
	app.Post("/api/payment/webhook", deps.WebhookHandler.Payment)

	// ---------- Cron tick (secret header or admin session) ----------
	app.Get("/api/admin/cron/tick", deps.CronHandler.Tick)

	// ---------- Admin ----------
	admin := app.Group("/api/admin", handlers.RequireAdmin(authSvc, cfg))
	admin.Get("/orders", deps.AdminHandler.Orders)
	admin.Post("/orders/:id/status", deps.AdminHandler.UpdateOrderStatus)
	admin.Post("/inventory", deps.AdminHandler.UpdateInventory)

	admin.Get("/cj/settings", deps.CJAdminHandler.GetSettings)
	admin.Post("/cj/settings", deps.CJAdminHandler.PutSettings)
	admin.Post("/cj/import", deps.CJAdminHandler.Import)
	admin.Post("/cj/finder/start", deps.CJAdminHandler.StartFinder)
	admin.Post("/cj/scanner/start", deps.CJAdminHandler.StartScanner)
	admin.Get("/jobs", deps.CJAdminHandler.ListJobs)
	admin.Get("/jobs/:id", deps.CJAdminHandler.GetJob)
	admin.Post("/jobs/:id", deps.CJAdminHandler.JobAction)
	admin.Post("/jobs/:id/run", deps.CJAdminHandler.RunJob)
	admin.Post("/orders/:id/fulfill-cj", deps.CJAdminHandler.Fulfill)
	admin.Get("/orders/cj-retry", deps.CJAdminHandler.Retry)
	admin.Post("/orders/cj-retry", deps.CJAdminHandler.Retry)
	admin.Get("/orders/tracking-sync", deps.CJAdminHandler.TrackingSync)
	admin.Post("/orders/tracking-sync", deps.CJAdminHandler.TrackingSync)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{"ok": false, "error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
