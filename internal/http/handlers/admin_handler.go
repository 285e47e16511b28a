package handlers

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
	"github.com/MALKOO0044/shopixo-sub004/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	OrderRepo *repos.OrderRepo
	Order     *services.OrderService
	Inv       *services.InventoryService
}

func actor(c *fiber.Ctx) string {
	if u, okUser := c.Locals("user").(*domain.User); okUser {
		return u.Email
	}
	return "unknown"
}

// GET /api/admin/orders
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	orders, err := h.OrderRepo.ListLatest(100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"orders": orders})
}

// POST /api/admin/orders/:id/status  {status}
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	status, valid := validate.OrderStatus(body.Status)
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid status")
	}
	if err := h.Order.SetStatus(actor(c), id, status); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return failErr(c, err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return ok(c, nil)
}

// POST /api/admin/inventory  {productId, stock}
func (h *AdminHandler) UpdateInventory(c *fiber.Ctx) error {
	var body struct {
		ProductID string `json:"productId"`
		Stock     int    `json:"stock"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	pid, valid := validate.ID(body.ProductID)
	if !valid || body.Stock < 0 {
		return fail(c, fiber.StatusBadRequest, "invalid input")
	}
	if err := h.Inv.SetStock(pid, body.Stock); err != nil {
		applog.Error(c, "admin.inventory.save.fail", err, map[string]any{"product": pid})
		return failErr(c, err)
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"product": pid, "stock": body.Stock})
	return ok(c, nil)
}
