package handlers

import (
	"errors"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	applog "github.com/MALKOO0044/shopixo-sub004/internal/log"
	"github.com/MALKOO0044/shopixo-sub004/internal/services"
	"github.com/MALKOO0044/shopixo-sub004/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

// POST /api/login  {email, password}
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	email, valid := validate.Email(body.Email)
	if !valid || body.Password == "" {
		return fail(c, fiber.StatusBadRequest, "invalid credentials")
	}

	sid := ensureSID(c)
	u, err := h.Auth.Login(sid, email, body.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCredentials) {
			applog.Security(c, "auth.login.fail", map[string]any{"email": email})
			return fail(c, fiber.StatusUnauthorized, "invalid email or password")
		}
		return failErr(c, err)
	}
	applog.Audit(c, "auth.login", map[string]any{"user_id": u.ID})
	return ok(c, fiber.Map{"user": fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role}})
}

// POST /api/password  {currentPassword, newPassword} — behind RequireUser.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "login required")
	}
	var body struct {
		Current string `json:"currentPassword"`
		Next    string `json:"newPassword"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	if !validate.Password(body.Next) {
		return fail(c, fiber.StatusBadRequest, "password must be 8-20 chars with upper, lower, digit and symbol")
	}
	if err := h.Auth.ChangePassword(u, body.Current, body.Next); err != nil {
		if errors.Is(err, services.ErrBadCredentials) {
			applog.Security(c, "auth.password.fail", map[string]any{"user_id": u.ID})
			return fail(c, fiber.StatusUnauthorized, "wrong password")
		}
		return failErr(c, err)
	}
	applog.Audit(c, "auth.password.change", map[string]any{"user_id": u.ID})
	return ok(c, nil)
}

// POST /api/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies("sid"); sid != "" {
		if err := h.Auth.Logout(sid); err != nil {
			return failErr(c, err)
		}
	}
	return ok(c, nil)
}

// GET /api/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if sid == "" {
		return ok(c, fiber.Map{"user": nil})
	}
	u, err := h.Auth.Current(sid)
	if err != nil {
		return failErr(c, err)
	}
	if u == nil {
		return ok(c, fiber.Map{"user": nil})
	}
	return ok(c, fiber.Map{"user": fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role}})
}
