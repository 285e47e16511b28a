package handlers

import (
	"errors"

	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
	"github.com/MALKOO0044/shopixo-sub004/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CartHandler struct {
	Cart *services.CartService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{Name: "sid", Value: sid, Path: "/", HTTPOnly: true})
	}
	return sid
}

// GET /api/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(ensureSID(c))
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"cart": cv})
}

// POST /api/cart  {productId, variantId?, qty}
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var body struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Qty       int    `json:"qty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	if _, valid := validate.ID(body.ProductID); !valid {
		return fail(c, fiber.StatusBadRequest, "invalid productId")
	}
	body.Qty = validate.Qty(body.Qty)
	if err := h.Cart.Add(ensureSID(c), body.ProductID, body.VariantID, body.Qty); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "product not found")
		}
		applog.Error(c, "cart.add.fail", err, map[string]any{"product_id": body.ProductID})
		return failErr(c, err)
	}
	cv, err := h.Cart.View(ensureSID(c))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"cart": cv})
}

// DELETE /api/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.Cart.Clear(ensureSID(c)); err != nil {
		return failErr(c, err)
	}
	return ok(c, nil)
}
