package controller

import (
	"arcane-chat-be/internal/dto"
	"arcane-chat-be/internal/pkg/serverutils"
	"arcane-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	GetSession(ctx *fiber.Ctx) error
	UpdateSession(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
	ListThreads(ctx *fiber.Ctx) error
	CreateThread(ctx *fiber.Ctx) error
	SelectThread(ctx *fiber.Ctx) error
	RenameThread(ctx *fiber.Ctx) error
	DeleteThread(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	ClearActiveThread(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
}

type chatController struct {
	service  service.ISessionService
	identity fiber.Handler
	limit    fiber.Handler
}

// NewChatController takes the identity middleware and an optional rate
// limit applied to message sends.
func NewChatController(service service.ISessionService, identity fiber.Handler, limit fiber.Handler) IChatController {
	return &chatController{service: service, identity: identity, limit: limit}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(c.identity)
	h.Use(c.openSession)

	h.Get("/session", c.GetSession)
	h.Patch("/session", c.UpdateSession)
	h.Delete("/session", c.CloseSession)

	h.Get("/threads", c.ListThreads)
	h.Post("/threads", c.CreateThread)
	h.Delete("/threads/active/messages", c.ClearActiveThread)
	h.Post("/threads/:id/select", c.SelectThread)
	h.Put("/threads/:id", c.RenameThread)
	h.Delete("/threads/:id", c.DeleteThread)
	h.Get("/threads/:id/messages", c.GetMessages)

	if c.limit != nil {
		h.Post("/messages", c.limit, c.SendMessage)
	} else {
		h.Post("/messages", c.SendMessage)
	}
}

// openSession attaches the request to its session, starting one when needed.
func (c *chatController) openSession(ctx *fiber.Ctx) error {
	identity, ok := serverutils.IdentityFrom(ctx)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unknown identity")
	}
	if _, err := c.service.Open(ctx.Context(), serverutils.SessionKeyFrom(ctx), identity); err != nil {
		return toHTTPError(err)
	}
	return ctx.Next()
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.State(ctx.Context(), serverutils.SessionKeyFrom(ctx))
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *chatController) UpdateSession(ctx *fiber.Ctx) error {
	var req dto.UpdatePreferencesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := c.service.UpdatePreferences(ctx.Context(), serverutils.SessionKeyFrom(ctx), &req)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update session", res))
}

func (c *chatController) CloseSession(ctx *fiber.Ctx) error {
	if err := c.service.Close(ctx.Context(), serverutils.SessionKeyFrom(ctx)); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success close session", nil))
}

func (c *chatController) ListThreads(ctx *fiber.Ctx) error {
	res, err := c.service.ListThreads(ctx.Context(), serverutils.SessionKeyFrom(ctx))
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all threads", res))
}

func (c *chatController) CreateThread(ctx *fiber.Ctx) error {
	res, err := c.service.NewChat(ctx.Context(), serverutils.SessionKeyFrom(ctx))
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create thread", res))
}

func (c *chatController) SelectThread(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.SelectThread(ctx.Context(), serverutils.SessionKeyFrom(ctx), id)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success select thread", res))
}

func (c *chatController) RenameThread(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.RenameThreadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RenameThread(ctx.Context(), serverutils.SessionKeyFrom(ctx), id, req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rename thread", res))
}

func (c *chatController) DeleteThread(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteThread(ctx.Context(), serverutils.SessionKeyFrom(ctx), id); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete thread", nil))
}

func (c *chatController) GetMessages(ctx *fiber.Ctx) error {
	threadId := uuid.Nil
	if ctx.Params("id") != "active" {
		id, err := parseIdParam(ctx)
		if err != nil {
			return err
		}
		threadId = id
	}

	res, err := c.service.Messages(ctx.Context(), serverutils.SessionKeyFrom(ctx), threadId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}

func (c *chatController) ClearActiveThread(ctx *fiber.Ctx) error {
	if err := c.service.ClearThread(ctx.Context(), serverutils.SessionKeyFrom(ctx)); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear thread", nil))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.Context(), serverutils.SessionKeyFrom(ctx), req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}
