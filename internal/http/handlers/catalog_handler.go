package handlers

import (
	"strconv"

	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
	"github.com/MALKOO0044/shopixo-sub004/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

// GET /api/categories
func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories()
	if err != nil {
		applog.Error(c, "catalog.categories.fail", err, nil)
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"categories": cats})
}

// GET /api/products?category=&q=&page=&pageSize=
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	catID := c.Query("category")
	if catID != "" {
		if _, valid := validate.ID(catID); !valid {
			return fail(c, fiber.StatusBadRequest, "invalid category")
		}
	}
	q := c.Query("q")
	if q != "" {
		var valid bool
		if q, valid = validate.Q(q); !valid {
			return fail(c, fiber.StatusBadRequest, "invalid query")
		}
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "24"))

	products, err := h.Catalog.ListProducts(catID, q, page, pageSize)
	if err != nil {
		applog.Error(c, "catalog.list.fail", err, map[string]any{"category": catID})
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"products": products, "page": page})
}

// GET /api/products/:slug
func (h *CatalogHandler) Detail(c *fiber.Ctx) error {
	sl, valid := validate.Slug(c.Params("slug"))
	if !valid {
		return fail(c, fiber.StatusBadRequest, "invalid slug")
	}
	p, err := h.Catalog.BySlug(sl)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"product": p})
}
