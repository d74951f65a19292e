package serverutils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(ctx context.Context, tokenId string) (bool, error) {
	return r[tokenId], nil
}

func newIdentityApp(mw fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", mw, func(ctx *fiber.Ctx) error {
		identity, _ := IdentityFrom(ctx)
		return ctx.JSON(fiber.Map{
			"scope":       identity.Scope.Key(),
			"session_key": SessionKeyFrom(ctx),
		})
	})
	return app
}

func TestIdentityMiddleware_Guest(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour)
	app := newIdentityApp(IdentityMiddleware(issuer, nil))

	t.Run("issues a guest id when missing", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		_, err = uuid.Parse(resp.Header.Get(constant.GuestIdHeader))
		assert.NoError(t, err)
	})

	t.Run("keeps a valid guest id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(constant.GuestIdHeader, id)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, id, resp.Header.Get(constant.GuestIdHeader))
	})

	t.Run("reads the guest id from the query for websockets", func(t *testing.T) {
		id := uuid.NewString()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?guest_id="+id, nil))
		require.NoError(t, err)
		assert.Equal(t, id, resp.Header.Get(constant.GuestIdHeader))
	})

	t.Run("replaces a malformed guest id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(constant.GuestIdHeader, "not-a-uuid")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.NotEqual(t, "not-a-uuid", resp.Header.Get(constant.GuestIdHeader))
	})
}

func TestIdentityMiddleware_Token(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour)
	user := &entity.User{Id: uuid.New(), FullName: "Ada"}
	signed, claims, err := issuer.Issue(user, "")
	require.NoError(t, err)

	t.Run("valid token resolves the user", func(t *testing.T) {
		app := newIdentityApp(IdentityMiddleware(issuer, revokedSet{}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get(constant.GuestIdHeader))
	})

	t.Run("revoked token is refused", func(t *testing.T) {
		app := newIdentityApp(IdentityMiddleware(issuer, revokedSet{claims.TokenId: true}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token is refused rather than downgraded to guest", func(t *testing.T) {
		app := newIdentityApp(IdentityMiddleware(issuer, nil))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestJwtMiddleware_RequiresToken(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour)
	app := newIdentityApp(JwtMiddleware(issuer, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimit_RejectsOverQuota(t *testing.T) {
	lim, err := NewRateLimiter("2-M", nil, logger.NewNopLogger())
	require.NoError(t, err)

	issuer := token.NewIssuer("secret", time.Hour)
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Post("/", IdentityMiddleware(issuer, nil), RateLimit(lim), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})

	guest := uuid.NewString()
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(constant.GuestIdHeader, guest)
		resp, err := app.Test(req)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func newLimitedApp(t *testing.T, issuer *token.Issuer) *fiber.App {
	lim, err := NewRateLimiter("2-M", nil, logger.NewNopLogger())
	require.NoError(t, err)

	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Post("/", IdentityMiddleware(issuer, nil), RateLimit(lim), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRateLimit_RotatingGuestIdsShareTheIpBucket(t *testing.T) {
	app := newLimitedApp(t, token.NewIssuer("secret", time.Hour))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if i%2 == 0 {
			req.Header.Set(constant.GuestIdHeader, uuid.NewString())
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_SignedInUsersHaveOwnBuckets(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour)
	app := newLimitedApp(t, issuer)

	send := func(user *entity.User) int {
		signed, _, err := issuer.Issue(user, "")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	ada := &entity.User{Id: uuid.New(), FullName: "Ada"}
	bob := &entity.User{Id: uuid.New(), FullName: "Bob"}

	assert.Equal(t, http.StatusOK, send(ada))
	assert.Equal(t, http.StatusOK, send(ada))
	assert.Equal(t, http.StatusTooManyRequests, send(ada))
	assert.Equal(t, http.StatusOK, send(bob))
}

func TestSessionKey(t *testing.T) {
	alice := entity.GuestIdentity(uuid.New())
	bob := entity.GuestIdentity(uuid.New())

	tests := []struct {
		name      string
		identity  entity.Identity
		sessionId string
		want      string
	}{
		{"no session id", alice, "", alice.Scope.Key()},
		{"session id under scope", alice, "tab-1", alice.Scope.Key() + ":tab-1"},
		{"same id other guest", bob, "tab-1", bob.Scope.Key() + ":tab-1"},
		{"trimmed", alice, "  tab-1 ", alice.Scope.Key() + ":tab-1"},
		{"too long", alice, strings.Repeat("x", 65), alice.Scope.Key()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionKey(tt.identity, tt.sessionId))
		})
	}

	assert.NotEqual(t, SessionKey(alice, "tab-1"), SessionKey(bob, "tab-1"))
	assert.NotEqual(t, SessionKey(bob, alice.Scope.Key()), alice.Scope.Key())
}
