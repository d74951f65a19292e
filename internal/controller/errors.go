package controller

import (
	"errors"

	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/service"
	"arcane-chat-be/pkg/conversation/registry"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// toHTTPError maps service failures onto response codes. Banner failures keep
// the banner text as the message.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var bannerErr *service.BannerError
	switch {
	case errors.As(err, &bannerErr):
		if bannerErr.Throttled {
			return fiber.NewError(fiber.StatusTooManyRequests, bannerErr.Message)
		}
		return fiber.NewError(fiber.StatusBadGateway, bannerErr.Message)
	case errors.Is(err, contract.ErrThreadNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrEmptyName), errors.Is(err, service.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRequestInFlight), errors.Is(err, service.ErrNoActiveThread):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, contract.ErrUnsupportedScope):
		return fiber.NewError(fiber.StatusServiceUnavailable, "conversations are not available for this identity")
	case errors.Is(err, service.ErrUnsupportedProvider), errors.Is(err, service.ErrInvalidOAuthState):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func parseIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid thread id")
	}
	return id, nil
}
