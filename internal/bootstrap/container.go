package bootstrap

import (
	"context"
	"log"

	"arcane-chat-be/internal/config"
	"arcane-chat-be/internal/controller"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/handler"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/pkg/serverutils"
	"arcane-chat-be/internal/pkg/token"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/repository/docstore"
	"arcane-chat-be/internal/repository/memory"
	"arcane-chat-be/internal/repository/unitofwork"
	"arcane-chat-be/internal/service"
	"arcane-chat-be/internal/websocket"
	"arcane-chat-be/pkg/feed"
	"arcane-chat-be/pkg/kv"
	"arcane-chat-be/pkg/llm/factory"

	pktNats "arcane-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	HistoryController controller.IHistoryController
	AuthController    controller.IAuthController
	OAuthController   controller.IOAuthController // nil without a database

	// WebSockets & Activity
	FeedHandler     *handler.FeedHandler
	WebSocketHub    *websocket.Hub
	ActivityService *service.ActivityService

	Logger logger.ILogger

	shutdown []func()
}

// NewContainer wires the application. db may be nil, in which case only
// guests can chat and sign-in is disabled. Redis and NATS are optional too.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 2. Infrastructure
	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-process storage", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			c.shutdown = append(c.shutdown, func() { _ = rdb.Close() })
		}
	}

	var kvStore kv.Store = kv.NewMemoryStore()
	if rdb != nil {
		kvStore = kv.NewRedisStore(rdb, cfg.App.Name)
	}

	// NATS
	var eventPublisher service.EventPublisher
	var eventSubscriber service.EventSubscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.shutdown = append(c.shutdown, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			eventSubscriber = natsSub
			c.shutdown = append(c.shutdown, natsSub.Close)
		}
	}

	// 3. Live Feed
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	broker := feed.NewBroker(pubSub)
	c.shutdown = append(c.shutdown, func() { _ = broker.Close() })

	// 4. Stores
	guestStore := memory.NewGuestStore(cfg.Chat.GuestTTL, broker)
	stores := map[entity.ScopeKind]contract.ConversationStore{
		entity.ScopeGuest: guestStore,
	}

	var userStore contract.ConversationStore
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
		userStore = docstore.NewDocumentStore(uowFactory, broker)
		stores[entity.ScopeUser] = userStore
	} else {
		log.Printf("[WARN] No database configured, signed-in chat is disabled")
	}

	// 5. Services
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Chat.LLMProvider,
		BaseURL:  cfg.Chat.LLMBaseURL,
		APIKey:   cfg.Chat.LLMAPIKey,
		Model:    cfg.Chat.LLMModel,
		Timeout:  cfg.Chat.LLMTimeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Chat.LLMProvider, cfg.Chat.LLMBaseURL)

	sessionService := service.NewSessionService(
		memory.NewSessionRepository(cfg.Chat.SessionTTL),
		userStore,
		guestStore,
		llmProvider,
		eventPublisher,
		sysLogger,
		service.SessionServiceConfig{BannerDuration: cfg.Chat.BannerDuration},
	)
	historyService := service.NewHistoryService(kvStore, llmProvider, cfg.Chat.HistoryTTL, sysLogger)

	issuer := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(issuer, kvStore, eventPublisher, sysLogger)

	// 6. Feed Infrastructure
	feedLogger := logger.NewIsolatedLogger(cfg.App.FeedLogFilePath)
	wsHub := websocket.NewHub(rdb, feedLogger)
	relay := service.NewFeedRelay(ctx, stores, wsHub, feedLogger)
	wsHub.SetListener(relay)
	if rdb != nil {
		broker.Observe(wsHub.Broadcast)
	}
	go wsHub.Run(ctx)

	activityService := service.NewActivityService(eventSubscriber, sysLogger)
	if eventSubscriber != nil {
		go activityService.Start()
	}

	// 7. Middleware
	identity := serverutils.IdentityMiddleware(issuer, authService)
	jwt := serverutils.JwtMiddleware(issuer, authService)

	var rateLimit fiber.Handler
	limiter, err := serverutils.NewRateLimiter(cfg.RateLimit.Rate, rdb, sysLogger)
	if err != nil {
		log.Printf("[WARN] Invalid rate limit %q, sends are not throttled: %v", cfg.RateLimit.Rate, err)
	} else {
		rateLimit = serverutils.RateLimit(limiter)
	}

	// 8. Controllers
	c.ChatController = controller.NewChatController(sessionService, identity, rateLimit)
	c.HistoryController = controller.NewHistoryController(historyService, identity, rateLimit)
	c.AuthController = controller.NewAuthController(authService, identity, jwt)
	if uowFactory != nil {
		oauthService := service.NewOAuthService(uowFactory, authService, kvStore, cfg.Auth, sysLogger)
		c.OAuthController = controller.NewOAuthController(oauthService, cfg.App.ClientURL, sysLogger)
	}
	c.FeedHandler = handler.NewFeedHandler(wsHub, relay, activityService, identity, feedLogger)
	c.WebSocketHub = wsHub
	c.ActivityService = activityService

	return c
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.shutdown) - 1; i >= 0; i-- {
		c.shutdown[i]()
	}
	_ = c.Logger.Sync()
}
