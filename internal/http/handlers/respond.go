package handlers

import (
	"database/sql"
	"errors"

	"github.com/MALKOO0044/shopixo-sub004/internal/repos"

	"github.com/gofiber/fiber/v2"
)

func ok(c *fiber.Ctx, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["ok"] = true
	return c.JSON(data)
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"ok": false, "error": msg})
}

// failErr maps the common error kinds onto their status codes; everything
// unrecognized becomes a 500 with a generic message so internals don't leak.
func failErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repos.ErrTablesMissing):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"ok": false, "error": "integration tables missing", "tablesMissing": true,
		})
	case errors.Is(err, sql.ErrNoRows):
		return fail(c, fiber.StatusNotFound, "not found")
	default:
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}
}
