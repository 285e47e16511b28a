package handlers

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
	"github.com/MALKOO0044/shopixo-sub004/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /api/availability?productId=
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	pid, valid := validate.ID(c.Query("productId"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid productId")
	}
	av, err := h.Inv.Availability(pid)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"availability": av})
}
