// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"context"
	"strings"

	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localsUserId     = "user_id"
	localsClaims     = "claims"
	localsIdentity   = "identity"
	localsSessionKey = "session_key"

	maxSessionIdLength = 64
)

// RevocationChecker reports whether a signed-out token id must be refused.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenId string) (bool, error)
}

// BearerToken reads the token from the Authorization header, falling back to
// the "token" query parameter used by browser websocket clients.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

func verify(ctx *fiber.Ctx, issuer *token.Issuer, revocations RevocationChecker, tokenStr string) (*token.Claims, error) {
	claims, err := issuer.Parse(tokenStr)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}
	if revocations != nil {
		revoked, err := revocations.IsRevoked(ctx.Context(), claims.TokenId)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusServiceUnavailable, "Unable to verify token")
		}
		if revoked {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Token has been revoked")
		}
	}
	return claims, nil
}

func setIdentity(ctx *fiber.Ctx, identity entity.Identity, claims *token.Claims) {
	ctx.Locals(localsIdentity, identity)
	if claims != nil {
		ctx.Locals(localsClaims, claims)
		ctx.Locals(localsUserId, claims.UserId.String())
	}

	ctx.Locals(localsSessionKey, SessionKey(identity, ctx.Get(constant.SessionIdHeader)))
}

// SessionKey namespaces the client's session id under its identity scope, so
// one identity can never open another identity's session.
func SessionKey(identity entity.Identity, sessionId string) string {
	sessionId = strings.TrimSpace(sessionId)
	if sessionId == "" || len(sessionId) > maxSessionIdLength {
		return identity.Scope.Key()
	}
	return identity.Scope.Key() + ":" + sessionId
}

// JwtMiddleware admits only requests carrying a valid, unrevoked token.
func JwtMiddleware(issuer *token.Issuer, revocations RevocationChecker) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}

		claims, err := verify(ctx, issuer, revocations, tokenStr)
		if err != nil {
			return err
		}

		setIdentity(ctx, claims.Identity(), claims)
		return ctx.Next()
	}
}

// IdentityMiddleware resolves a signed-in user when a token is present and a
// guest otherwise. The guest id comes from the guest id header or, for
// websocket handshakes, the "guest_id" query parameter. A guest without a
// usable id gets a fresh one, returned in the guest id response header.
func IdentityMiddleware(issuer *token.Issuer, revocations RevocationChecker) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if tokenStr := BearerToken(ctx); tokenStr != "" {
			claims, err := verify(ctx, issuer, revocations, tokenStr)
			if err != nil {
				return err
			}
			setIdentity(ctx, claims.Identity(), claims)
			return ctx.Next()
		}

		raw := ctx.Get(constant.GuestIdHeader)
		if raw == "" {
			raw = ctx.Query("guest_id")
		}
		guestId, err := uuid.Parse(raw)
		if err != nil || guestId == uuid.Nil {
			guestId = uuid.New()
		}
		ctx.Set(constant.GuestIdHeader, guestId.String())

		setIdentity(ctx, entity.GuestIdentity(guestId), nil)
		return ctx.Next()
	}
}

func IdentityFrom(ctx *fiber.Ctx) (entity.Identity, bool) {
	identity, ok := ctx.Locals(localsIdentity).(entity.Identity)
	return identity, ok
}

func ClaimsFrom(ctx *fiber.Ctx) (*token.Claims, bool) {
	claims, ok := ctx.Locals(localsClaims).(*token.Claims)
	return claims, ok && claims != nil
}

func SessionKeyFrom(ctx *fiber.Ctx) string {
	key, _ := ctx.Locals(localsSessionKey).(string)
	return key
}
