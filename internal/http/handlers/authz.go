package handlers

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/config"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin admits users with the ADMIN role or an allow-listed email.
func RequireAdmin(auth *services.AuthService, cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return fail(c, fiber.StatusUnauthorized, "login required")
		}
		u, err := auth.Current(sid)
		if err != nil {
			return failErr(c, err)
		}
		if u == nil || (u.Role != "ADMIN" && !cfg.IsAdminEmail(u.Email)) {
			applog.Security(c, "access.denied.admin", map[string]any{"sid": sid})
			return fail(c, fiber.StatusForbidden, "access denied")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireUser enforces a logged-in session.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return fail(c, fiber.StatusUnauthorized, "login required")
		}
		u, err := auth.Current(sid)
		if err != nil {
			return failErr(c, err)
		}
		if u == nil {
			return fail(c, fiber.StatusUnauthorized, "login required")
		}
		c.Locals("user", u)
		return c.Next()
	}
}
