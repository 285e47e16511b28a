package handlers

import (
	"errors"

	"github.com/MALKOO0044/shopixo-sub004/internal/cj"

	"github.com/gofiber/fiber/v2"
)

type ShippingHandler struct{}

// POST /api/cj/shipping/calc  {costPrice, weightGrams, countryCode, marginFactor?}
func (h *ShippingHandler) Calc(c *fiber.Ctx) error {
	var req cj.QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	q, err := cj.QuoteShipping(req)
	if err != nil {
		if errors.Is(err, cj.ErrBadQuote) {
			return fail(c, fiber.StatusBadRequest, "invalid quote request")
		}
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"quote": q})
}
