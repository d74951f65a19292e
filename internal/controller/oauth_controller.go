// FILE: internal/controller/oauth_controller.go
package controller

import (
	"fmt"
	"net/url"

	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/pkg/serverutils"
	"arcane-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type oauthController struct {
	service   service.IOAuthService
	clientURL string
	log       logger.ILogger
}

func NewOAuthController(service service.IOAuthService, clientURL string, log logger.ILogger) IOAuthController {
	return &oauthController{service: service, clientURL: clientURL, log: log}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	// e.g., /auth/google
	h := r.Group("/auth")
	h.Get("/:provider", c.Login)
	h.Get("/:provider/callback", c.Callback)
}

func (c *oauthController) Login(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")

	loginURL, err := c.service.GetLoginURL(ctx.Context(), provider)
	if err != nil {
		c.log.Warn("OAUTH", "Failed to build login URL", map[string]interface{}{"provider": provider, "error": err.Error()})
		return toHTTPError(err)
	}

	return ctx.Redirect(loginURL)
}

func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Missing code"))
	}

	res, err := c.service.HandleCallback(ctx.Context(), provider, code, state)
	if err != nil {
		c.log.Error("OAUTH", "Callback failed", map[string]interface{}{"provider": provider, "error": err.Error()})
		return toHTTPError(err)
	}

	// The client picks the token up from the URL and drops it from history.
	redirectURL := fmt.Sprintf("%s/?token=%s", c.clientURL, url.QueryEscape(res.AccessToken))
	return ctx.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}
