package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"
	"github.com/MALKOO0044/shopixo-sub004/internal/config"
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler receives supplier and payment callbacks. Webhook
// responses are always 200 once the signature question is settled, so the
// sender does not retry storms over our internal errors.
type WebhookHandler struct {
	Cfg         config.Config
	Orders      *repos.OrderRepo
	Order       *services.OrderService
	Fulfillment *services.FulfillmentService
}

type cjWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		OrderID    any    `json:"orderId"` // string or number
		TrackingNo string `json:"trackingNo"`
		Carrier    string `json:"carrier"`
		Status     string `json:"status"`
	} `json:"data"`
}

func webhookOrderID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func signatureOf(c *fiber.Ctx) string {
	if s := c.Get("x-cj-signature"); s != "" {
		return s
	}
	return c.Get("x-signature")
}

// POST /api/cj/webhook
func (h *WebhookHandler) CJ(c *fiber.Ctx) error {
	body := c.Body()
	sig := signatureOf(c)

	verified := false
	switch {
	case h.Cfg.CJWebhookSecret != "" && sig != "":
		if !cj.VerifySignature(h.Cfg.CJWebhookSecret, body, sig) {
			applog.Security(c, "cj.webhook.bad_signature", nil)
			return fail(c, fiber.StatusUnauthorized, "bad signature")
		}
		verified = true
	case h.Cfg.Production():
		// No secret configured or no signature sent: reject in production.
		applog.Security(c, "cj.webhook.unsigned", nil)
		return fail(c, fiber.StatusUnauthorized, "signature required")
	}

	var p cjWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid payload")
	}
	orderID := webhookOrderID(p.Data.OrderID)
	if orderID == "" {
		return fail(c, fiber.StatusBadRequest, "missing orderId")
	}

	u := repos.TrackingUpdate{
		TrackingNumber: p.Data.TrackingNo,
		Carrier:        p.Data.Carrier,
		CJStatus:       p.Data.Status,
	}
	switch p.Event {
	case "shipped":
		u.Status = domain.OrderShipped
	case "delivered":
		u.Status = domain.OrderDelivered
	case "tracking.update":
		// tracking fields only, no local status change
	default:
		applog.Info(c, "cj.webhook.ignored", map[string]any{"event": p.Event})
		return c.JSON(fiber.Map{"received": true, "verified": verified})
	}

	if err := h.Orders.ApplyTracking(orderID, u); err != nil {
		applog.Error(c, "cj.webhook.apply.fail", err, map[string]any{"order_id": orderID})
	} else {
		applog.Info(c, "cj.webhook.applied", map[string]any{"order_id": orderID, "event": p.Event})
	}
	return c.JSON(fiber.Map{"received": true, "verified": verified})
}

// POST /api/payment/webhook
// Marks the order paid and kicks off fulfillment best-effort; a supplier
// failure here is retried later via the admin retry endpoint.
func (h *WebhookHandler) Payment(c *fiber.Ctx) error {
	body := c.Body()
	sig := signatureOf(c)
	if h.Cfg.PaymentWebhookSecret != "" {
		if !cj.VerifySignature(h.Cfg.PaymentWebhookSecret, body, sig) {
			applog.Security(c, "payment.webhook.bad_signature", nil)
			return fail(c, fiber.StatusUnauthorized, "bad signature")
		}
	} else if h.Cfg.Production() {
		applog.Security(c, "payment.webhook.unsigned", nil)
		return fail(c, fiber.StatusUnauthorized, "signature required")
	}

	var p struct {
		Event   string `json:"event"`
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(body, &p); err != nil || p.OrderID == "" {
		return fail(c, fiber.StatusBadRequest, "invalid payload")
	}
	if p.Event != "payment.succeeded" {
		return c.JSON(fiber.Map{"received": true})
	}

	o, err := h.Order.MarkPaid(p.OrderID)
	if err != nil {
		applog.Error(c, "payment.webhook.mark_paid.fail", err, map[string]any{"order_id": p.OrderID})
		return c.JSON(fiber.Map{"received": true})
	}
	applog.Audit(c, "payment.webhook.paid", map[string]any{"order_id": o.ID})

	if res, err := h.Fulfillment.CreateCJOrder(c.Context(), o.ID, nil); err != nil {
		applog.Error(c, "payment.webhook.fulfill.fail", err, map[string]any{"order_id": o.ID})
	} else if !res.OK {
		applog.Info(c, "payment.webhook.fulfill.skipped", map[string]any{"order_id": o.ID, "reason": res.Reason})
	}
	return c.JSON(fiber.Map{"received": true})
}
