package handlers

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
	"github.com/MALKOO0044/shopixo-sub004/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// CJAdminHandler bundles the supplier-facing admin surface: credentials,
// the fulfillment kill switch, product import, discovery jobs, manual
// fulfillment, retries and tracking sweeps.
type CJAdminHandler struct {
	Settings    *repos.SettingsRepo
	Jobs        *services.JobService
	Sync        *services.SyncService
	Fulfillment *services.FulfillmentService
	Tracking    *services.TrackingService
}

// maskKey shows only the last four characters of a stored key.
func maskKey(k string) string {
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}

// GET /api/admin/cj/settings
func (h *CJAdminHandler) GetSettings(c *fiber.Ctx) error {
	var creds repos.CJCredentials
	err := h.Settings.Get(repos.SettingCJCredentials, &creds)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return failErr(c, err)
	}
	disabled, err := h.Settings.Bool(repos.SettingKillSwitch)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{
		"email":               creds.Email,
		"apiKeyMasked":        maskKey(creds.APIKey),
		"fulfillmentDisabled": disabled,
	})
}

// POST /api/admin/cj/settings  {email?, apiKey?, fulfillmentDisabled?}
func (h *CJAdminHandler) PutSettings(c *fiber.Ctx) error {
	var body struct {
		Email               *string `json:"email"`
		APIKey              *string `json:"apiKey"`
		FulfillmentDisabled *bool   `json:"fulfillmentDisabled"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	if body.Email != nil || body.APIKey != nil {
		var creds repos.CJCredentials
		if err := h.Settings.Get(repos.SettingCJCredentials, &creds); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return failErr(c, err)
		}
		if body.Email != nil {
			email, valid := validate.Email(*body.Email)
			if !valid {
				return fail(c, fiber.StatusBadRequest, "invalid email")
			}
			creds.Email = email
		}
		if body.APIKey != nil {
			if *body.APIKey == "" {
				return fail(c, fiber.StatusBadRequest, "empty apiKey")
			}
			creds.APIKey = *body.APIKey
		}
		if err := h.Settings.Put(repos.SettingCJCredentials, creds); err != nil {
			return failErr(c, err)
		}
		applog.Audit(c, "admin.cj.credentials.save", map[string]any{"actor": actor(c)})
	}

	if body.FulfillmentDisabled != nil {
		if err := h.Settings.Put(repos.SettingKillSwitch, *body.FulfillmentDisabled); err != nil {
			return failErr(c, err)
		}
		applog.Audit(c, "admin.cj.killswitch", map[string]any{
			"actor": actor(c), "disabled": *body.FulfillmentDisabled,
		})
	}
	return ok(c, nil)
}

// POST /api/admin/cj/import  {pid, updateImages?, updateVideo?, updatePrice?}
func (h *CJAdminHandler) Import(c *fiber.Ctx) error {
	var body struct {
		PID string `json:"pid"`
		services.UpsertOptions
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	if _, valid := validate.ID(body.PID); !valid {
		return fail(c, fiber.StatusBadRequest, "invalid pid")
	}
	res, err := h.Sync.ImportProduct(c.Context(), body.PID, body.UpsertOptions)
	if err != nil {
		applog.Error(c, "admin.cj.import.fail", err, map[string]any{"pid": body.PID})
		return fail(c, fiber.StatusBadGateway, "supplier import failed")
	}
	applog.Audit(c, "admin.cj.import", map[string]any{"pid": body.PID, "product_id": res.ProductID})
	return ok(c, fiber.Map{"result": res})
}

// POST /api/admin/cj/finder/start
func (h *CJAdminHandler) StartFinder(c *fiber.Ctx) error {
	var params domain.FinderParams
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	j, err := h.Jobs.CreateFinder(params)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	applog.Audit(c, "admin.cj.finder.start", map[string]any{"job_id": j.ID, "keywords": len(params.Keywords)})
	return ok(c, fiber.Map{"job": j})
}

// POST /api/admin/cj/scanner/start  {batchSize?}
func (h *CJAdminHandler) StartScanner(c *fiber.Ctx) error {
	var body struct {
		BatchSize int `json:"batchSize"`
	}
	_ = c.BodyParser(&body)
	j, err := h.Jobs.CreateScanner(body.BatchSize)
	if err != nil {
		return failErr(c, err)
	}
	applog.Audit(c, "admin.cj.scanner.start", map[string]any{"job_id": j.ID})
	return ok(c, fiber.Map{"job": j})
}

// GET /api/admin/jobs
func (h *CJAdminHandler) ListJobs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	jobs, err := h.Jobs.Jobs.List(limit)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"jobs": jobs})
}

// GET /api/admin/jobs/:id
func (h *CJAdminHandler) GetJob(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	j, err := h.Jobs.Jobs.Get(id)
	if err != nil {
		return failErr(c, err)
	}
	cands, err := h.Jobs.Jobs.Candidates(id, 200)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"job": j, "candidates": cands})
}

// POST /api/admin/jobs/:id  {action: "cancel"}
func (h *CJAdminHandler) JobAction(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	var body struct {
		Action string `json:"action"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	if body.Action != "cancel" {
		return fail(c, fiber.StatusBadRequest, "unknown action")
	}
	if err := h.Jobs.Cancel(id); err != nil {
		return failErr(c, err)
	}
	applog.Audit(c, "admin.cj.job.cancel", map[string]any{"job_id": id})
	return ok(c, nil)
}

// POST /api/admin/jobs/:id/run  {mode: "step"|"all", steps?}
func (h *CJAdminHandler) RunJob(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	var body struct {
		Mode  string `json:"mode"`
		Steps int    `json:"steps"`
	}
	_ = c.BodyParser(&body)
	if body.Mode == "" {
		body.Mode = "step"
	}

	res, err := h.Jobs.RunSteps(c.Context(), id, body.Mode, body.Steps)
	if err != nil {
		if errors.Is(err, repos.ErrJobConflict) {
			return fail(c, fiber.StatusConflict, "job advanced by a concurrent run")
		}
		applog.Error(c, "admin.cj.job.run.fail", err, map[string]any{"job_id": id})
		return failErr(c, err)
	}
	j, err := h.Jobs.Jobs.Get(id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"run": res, "job": j})
}

// POST /api/admin/orders/:id/fulfill-cj  {shippingOverride?}
func (h *CJAdminHandler) Fulfill(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	var body struct {
		ShippingOverride *services.ShippingOverride `json:"shippingOverride"`
	}
	_ = c.BodyParser(&body)

	res, err := h.Fulfillment.CreateCJOrder(c.Context(), id, body.ShippingOverride)
	if err != nil {
		applog.Error(c, "admin.cj.fulfill.fail", err, map[string]any{"order_id": id})
		return fail(c, fiber.StatusBadGateway, "supplier order failed")
	}
	applog.Audit(c, "admin.cj.fulfill", map[string]any{
		"order_id": id, "ok": res.OK, "reason": res.Reason, "cj_order": res.CJOrderNum,
	})
	return ok(c, fiber.Map{"result": res})
}

// GET|POST /api/admin/orders/cj-retry  {limit?}
func (h *CJAdminHandler) Retry(c *fiber.Ctx) error {
	var body struct {
		Limit int `json:"limit"`
	}
	_ = c.BodyParser(&body)
	sum, err := h.Fulfillment.RetryPending(c.Context(), body.Limit)
	if err != nil {
		applog.Error(c, "admin.cj.retry.fail", err, nil)
		return failErr(c, err)
	}
	applog.Audit(c, "admin.cj.retry", map[string]any{"total": sum.Total, "successful": sum.Successful})
	return ok(c, fiber.Map{"summary": sum})
}

// GET|POST /api/admin/orders/tracking-sync  {limit?, orderId?}
func (h *CJAdminHandler) TrackingSync(c *fiber.Ctx) error {
	var body struct {
		Limit   int    `json:"limit"`
		OrderID string `json:"orderId"`
	}
	_ = c.BodyParser(&body)

	if body.OrderID != "" {
		if err := h.Tracking.SyncOrder(c.Context(), body.OrderID); err != nil {
			applog.Error(c, "admin.cj.tracking.fail", err, map[string]any{"order_id": body.OrderID})
			return fail(c, fiber.StatusBadGateway, "tracking sync failed")
		}
		return ok(c, nil)
	}

	sum, err := h.Tracking.SyncAllPending(c.Context(), body.Limit)
	if err != nil {
		applog.Error(c, "admin.cj.tracking.fail", err, nil)
		return failErr(c, err)
	}
	applog.Audit(c, "admin.cj.tracking", map[string]any{"total": sum.Total, "failed": sum.Failed})
	return ok(c, fiber.Map{"summary": sum})
}
