package handlers

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/config"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	CatalogHandler   *CatalogHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	AdminHandler     *AdminHandler
	CJAdminHandler   *CJAdminHandler
	WebhookHandler   *WebhookHandler
	ShippingHandler  *ShippingHandler
	CronHandler      *CronHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, supplier services.Supplier) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	settingsRepo := repos.NewSettingsRepo(db)
	jobRepo := repos.NewJobRepo(db)
	auditRepo := repos.NewAuditRepo(db)

	catalogSvc := services.NewCatalogService(prodRepo, catRepo)
	invSvc := services.NewInventoryService(prodRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo)
	orderSvc := services.NewOrderService(orderRepo, cartRepo, prodRepo, auditRepo)
	syncSvc := services.NewSyncService(prodRepo, catRepo, auditRepo, supplier)
	fulfillSvc := services.NewFulfillmentService(orderRepo, prodRepo, settingsRepo, auditRepo, supplier)
	trackSvc := services.NewTrackingService(orderRepo, supplier)
	jobSvc := services.NewJobService(jobRepo, prodRepo, syncSvc, supplier)

	return &Deps{
		CatalogHandler:   &CatalogHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler:     &OrderHandler{Order: orderSvc, Repo: orderRepo, Auth: auth},
		AdminHandler:     &AdminHandler{OrderRepo: orderRepo, Order: orderSvc, Inv: invSvc},
		CJAdminHandler: &CJAdminHandler{
			Settings:    settingsRepo,
			Jobs:        jobSvc,
			Sync:        syncSvc,
			Fulfillment: fulfillSvc,
			Tracking:    trackSvc,
		},
		WebhookHandler:  &WebhookHandler{Cfg: cfg, Orders: orderRepo, Order: orderSvc, Fulfillment: fulfillSvc},
		ShippingHandler: &ShippingHandler{},
		CronHandler:     &CronHandler{Cfg: cfg, Tracking: trackSvc, Fulfillment: fulfillSvc, Jobs: jobSvc},
	}
}
