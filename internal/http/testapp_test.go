package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/config"
	"github.com/MALKOO0044/shopixo-sub004/internal/http/handlers"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"

	"github.com/jmoiron/sqlx"
)

// stubSupplier stands in for the CJ client behind the HTTP surface.
type stubSupplier struct {
	orderCalls int
	orderFn    func(req cj.OrderRequest) (string, error)
	queryFn    func(pid string) (*cj.RawItem, error)
	statusFn   func(id string) (*cj.OrderStatus, error)
	searchFn   func(kw string, page, size int) (*cj.SearchPage, error)
}

func (s *stubSupplier) SearchProducts(_ context.Context, kw string, page, size int) (*cj.SearchPage, error) {
	if s.searchFn == nil {
		return &cj.SearchPage{}, nil
	}
	return s.searchFn(kw, page, size)
}

func (s *stubSupplier) QueryProduct(_ context.Context, pid string) (*cj.RawItem, error) {
	if s.queryFn == nil {
		return nil, errors.New("no stub")
	}
	return s.queryFn(pid)
}

func (s *stubSupplier) CreateOrder(_ context.Context, req cj.OrderRequest) (string, error) {
	s.orderCalls++
	if s.orderFn == nil {
		return "CJ-1", nil
	}
	return s.orderFn(req)
}

func (s *stubSupplier) QueryOrder(_ context.Context, id string) (*cj.OrderStatus, error) {
	if s.statusFn == nil {
		return &cj.OrderStatus{}, nil
	}
	return s.statusFn(id)
}

type testApp struct {
	app *fiber.App
	db  *sqlx.DB
	sup *stubSupplier
	cfg config.Config
}

// newTestApp wires the full route table against an in-memory database and
// the stub supplier, mirroring the production wiring minus rate limiters.
func newTestApp(t *testing.T, cfg config.Config) *testApp {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	userRepo := repos.NewUserRepo(db)
	authSvc := services.NewAuthService(userRepo, repos.NewAuditRepo(db))
	sup := &stubSupplier{}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "internal error"})
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.Current(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})

	deps := handlers.NewDeps(db, cfg, authSvc, sup)
	authH := &handlers.AuthHandler{Auth: authSvc}

	app.Get("/api/categories", deps.CatalogHandler.Categories)
	app.Get("/api/products", deps.CatalogHandler.List)
	app.Get("/api/products/:slug", deps.CatalogHandler.Detail)
	app.Get("/api/availability", deps.InventoryHandler.Check)
	app.Get("/api/cart", deps.CartHandler.View)
	app.Post("/api/cart", deps.CartHandler.Add)
	app.Delete("/api/cart", deps.CartHandler.Clear)
	app.Post("/api/orders", deps.OrderHandler.Place)
	app.Get("/api/orders/:id", deps.OrderHandler.View)
	app.Get("/api/orders", handlers.RequireUser(authSvc), deps.OrderHandler.History)
	app.Post("/api/cj/shipping/calc", deps.ShippingHandler.Calc)
	app.Post("/api/login", authH.Login)
	app.Post("/api/password", handlers.RequireUser(authSvc), authH.ChangePassword)
	app.Post("/api/logout", authH.Logout)
	app.Get("/api/me", authH.Me)
	app.Post("/api/cj/webhook", deps.WebhookHandler.CJ)
	app.Post("/api/payment/webhook", deps.WebhookHandler.Payment)
	app.Get("/api/admin/cron/tick", deps.CronHandler.Tick)

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

	return &testApp{app: app, db: db, sup: sup, cfg: cfg}
}

func (ta *testApp) request(t *testing.T, method, path string, body any, cookies map[string]string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

// loginAdmin authenticates the seeded admin and returns its session cookie.
func (ta *testApp) loginAdmin(t *testing.T) string {
	t.Helper()
	resp, _ := ta.request(t, "POST", "/api/login", map[string]string{
		"email": "admin@shopixo.test", "password": "ChangeMe!1",
	}, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin login failed: %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			return c.Value
		}
	}
	t.Fatal("no sid cookie after login")
	return ""
}
