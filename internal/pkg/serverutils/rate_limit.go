package serverutils

import (
	"strconv"

	"arcane-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRateLimiter builds a limiter for a formatted rate such as "20-M". A nil
// redis client keeps counters in process memory.
func NewRateLimiter(rate string, rdb *redis.Client, log logger.ILogger) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	var store limiter.Store
	if rdb != nil {
		store, err = sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "chat_rate_limit"})
		if err != nil {
			log.Warn("RATE_LIMIT", "Failed to create redis store, falling back to memory", map[string]interface{}{"error": err.Error()})
			store = memory.NewStore()
		}
	} else {
		store = memory.NewStore()
	}

	return limiter.New(store, parsed), nil
}

// RateLimit throttles signed-in users per account and everyone else per
// client IP. Guest ids are client-chosen, so they never pick the bucket.
func RateLimit(lim *limiter.Limiter) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		key := "ip:" + ctx.IP()
		if identity, ok := IdentityFrom(ctx); ok && identity.Authenticated() {
			key = identity.Scope.Key()
		}

		res, err := lim.Get(ctx.Context(), key)
		if err != nil {
			// Store unavailable: let the request through.
			return ctx.Next()
		}

		ctx.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		ctx.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		ctx.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))

		if res.Reached {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please slow down")
		}
		return ctx.Next()
	}
}
