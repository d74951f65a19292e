package controller

import (
	"arcane-chat-be/internal/dto"
	"arcane-chat-be/internal/pkg/serverutils"
	"arcane-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IHistoryController interface {
	RegisterRoutes(r fiber.Router)
	Get(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
}

type historyController struct {
	service  service.IHistoryService
	identity fiber.Handler
	limit    fiber.Handler
}

func NewHistoryController(service service.IHistoryService, identity fiber.Handler, limit fiber.Handler) IHistoryController {
	return &historyController{service: service, identity: identity, limit: limit}
}

func (c *historyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/history/v1")
	h.Use(c.identity)
	h.Get("", c.Get)
	if c.limit != nil {
		h.Post("", c.limit, c.Send)
	} else {
		h.Post("", c.Send)
	}
	h.Delete("", c.Clear)
}

// guestId returns the guest the single-conversation history belongs to.
// Signed-in users keep their conversations in threads instead.
func guestId(ctx *fiber.Ctx) (uuid.UUID, error) {
	identity, ok := serverutils.IdentityFrom(ctx)
	if !ok || !identity.Scope.IsGuest() {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "History is only kept for guests")
	}
	return identity.Scope.Id, nil
}

func (c *historyController) Get(ctx *fiber.Ctx) error {
	id, err := guestId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Get(ctx.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *historyController) Send(ctx *fiber.Ctx) error {
	id, err := guestId(ctx)
	if err != nil {
		return err
	}

	var req dto.SendHistoryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Send(ctx.Context(), id, req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *historyController) Clear(ctx *fiber.Ctx) error {
	id, err := guestId(ctx)
	if err != nil {
		return err
	}

	if err := c.service.Clear(ctx.Context(), id); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear history", nil))
}
