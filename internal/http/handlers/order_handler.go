package handlers

import (
	"errors"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
	"github.com/MALKOO0044/shopixo-sub004/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	Order *services.OrderService
	Repo  *repos.OrderRepo
	Auth  *services.AuthService
}

// POST /api/orders  {customerName, customerEmail, shippingAddr, countryCode}
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var in services.CheckoutInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	var valid bool
	if in.CustomerName, valid = validate.Name(in.CustomerName); !valid {
		return fail(c, fiber.StatusBadRequest, "invalid name")
	}
	if in.CustomerEmail, valid = validate.Email(in.CustomerEmail); !valid {
		return fail(c, fiber.StatusBadRequest, "invalid email")
	}
	if in.CountryCode, valid = validate.Country(in.CountryCode); !valid {
		return fail(c, fiber.StatusBadRequest, "invalid country")
	}
	if in.ShippingAddr == "" || len(in.ShippingAddr) > 500 {
		return fail(c, fiber.StatusBadRequest, "invalid address")
	}

	o, err := h.Order.Place(ensureSID(c), in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			return fail(c, fiber.StatusBadRequest, "cart is empty")
		case errors.Is(err, services.ErrOutOfStock):
			return fail(c, fiber.StatusConflict, "insufficient stock")
		}
		applog.Error(c, "order.place.fail", err, nil)
		return failErr(c, err)
	}
	applog.Audit(c, "order.place", map[string]any{"order_id": o.ID, "total": o.Total})
	return ok(c, fiber.Map{"order": o})
}

// GET /api/orders/:id — scoped to the caller's session or account.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	o, err := h.Repo.Get(id)
	if err != nil {
		return failErr(c, err)
	}
	sid := c.Cookies("sid")
	if o.SessionID != sid && !h.ownsViaAccount(sid, o) {
		applog.Security(c, "order.view.denied", map[string]any{"order_id": id})
		return fail(c, fiber.StatusNotFound, "not found")
	}
	items, err := h.Repo.Items(id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"order": o, "items": items})
}

func (h *OrderHandler) ownsViaAccount(sid string, o domain.Order) bool {
	if sid == "" {
		return false
	}
	u, err := h.Auth.Current(sid)
	if err != nil || u == nil {
		return false
	}
	orders, err := h.Repo.ListByUser(u.ID)
	if err != nil {
		return false
	}
	for _, cand := range orders {
		if cand.ID == o.ID {
			return true
		}
	}
	return false
}

// GET /api/orders — history for the logged-in user.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "login required")
	}
	orders, err := h.Repo.ListByUser(u.ID)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"orders": orders})
}
