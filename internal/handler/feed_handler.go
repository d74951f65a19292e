package handler

import (
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/pkg/serverutils"
	"arcane-chat-be/internal/service"
	internalWS "arcane-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type FeedHandler struct {
	hub      *internalWS.Hub
	relay    *service.FeedRelay
	activity *service.ActivityService
	identity fiber.Handler
	logger   logger.ILogger
}

func NewFeedHandler(hub *internalWS.Hub, relay *service.FeedRelay, activity *service.ActivityService, identity fiber.Handler, log logger.ILogger) *FeedHandler {
	return &FeedHandler{
		hub:      hub,
		relay:    relay,
		activity: activity,
		identity: identity,
		logger:   log,
	}
}

func (h *FeedHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/chat/v1/feed/stats", h.Stats)
	r.Get("/chat/v1/feed", h.identity, h.ServeWs)
}

// ServeWs streams thread and message changes for the caller's scope. A
// signed-in client passes its token as the "token" query parameter, a guest
// its id as "guest_id".
func (h *FeedHandler) ServeWs(c *fiber.Ctx) error {
	identity, ok := serverutils.IdentityFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unknown identity"))
	}
	scope := identity.Scope

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("FeedHandler", "Starting WebSocket session", map[string]interface{}{"scope": scope.Key()})
			internalWS.ServeWs(h.hub, conn, scope)
			h.logger.Info("FeedHandler", "WebSocket session ended", map[string]interface{}{"scope": scope.Key()})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

type feedStats struct {
	ConnectedScopes int              `json:"connected_scopes"`
	RelayedScopes   int              `json:"relayed_scopes"`
	Events          map[string]int64 `json:"events"`
}

// Stats reports live feed usage and the domain event counts seen so far.
func (h *FeedHandler) Stats(c *fiber.Ctx) error {
	stats := feedStats{
		ConnectedScopes: h.hub.ConnectedScopes(),
		RelayedScopes:   h.relay.Active(),
		Events:          map[string]int64{},
	}
	if h.activity != nil {
		stats.Events = h.activity.Counts()
	}
	return c.JSON(serverutils.SuccessResponse("Success get feed stats", stats))
}
