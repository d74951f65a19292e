package server

import (
	"log"

	"arcane-chat-be/internal/bootstrap"
	"arcane-chat-be/internal/config"
	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	// Initialize Fiber App
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB
		AppName:   cfg.App.Name,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + constant.GuestIdHeader + ", " + constant.SessionIdHeader,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, " + constant.GuestIdHeader + ", X-RateLimit-Remaining, X-RateLimit-Reset",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse[any]("ok", nil))
	})

	api := app.Group("/api")

	// /auth/me and /auth/logout before the /auth/:provider catch-all
	c.AuthController.RegisterRoutes(api)
	if c.OAuthController != nil {
		c.OAuthController.RegisterRoutes(api)
	}

	c.FeedHandler.RegisterRoutes(api)
	c.ChatController.RegisterRoutes(api)
	c.HistoryController.RegisterRoutes(api)
}
