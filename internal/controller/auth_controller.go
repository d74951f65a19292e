package controller

import (
	"arcane-chat-be/internal/pkg/serverutils"
	"arcane-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Me(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	service  service.IAuthService
	identity fiber.Handler
	jwt      fiber.Handler
}

// NewAuthController takes the optional identity middleware for /me and the
// strict JWT middleware for logout.
func NewAuthController(service service.IAuthService, identity fiber.Handler, jwt fiber.Handler) IAuthController {
	return &authController{service: service, identity: identity, jwt: jwt}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	r.Get("/auth/me", c.identity, c.Me)
	r.Post("/auth/logout", c.jwt, c.Logout)
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	identity, ok := serverutils.IdentityFrom(ctx)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unknown identity")
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get identity", c.service.Me(identity)))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	claims, ok := serverutils.ClaimsFrom(ctx)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}

	if err := c.service.Logout(ctx.Context(), claims); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success logout", nil))
}
