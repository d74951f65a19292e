package service

import (
	"context"
	"testing"
	"time"

	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/pkg/token"
	"arcane-chat-be/pkg/kv"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	issuer := token.NewIssuer("secret", time.Hour)
	publisher := &recordingPublisher{}
	svc := NewAuthService(issuer, kv.NewMemoryStore(), publisher, logger.NewNopLogger())

	user := &entity.User{Id: uuid.New(), Email: "ada@example.com", FullName: "Ada"}
	res, err := svc.Login(ctx, user, "")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultAvatarURL, res.User.AvatarURL)
	assert.Equal(t, int64(3600), res.ExpiresIn)

	claims, err := issuer.Parse(res.AccessToken)
	require.NoError(t, err)

	revoked, err := svc.IsRevoked(ctx, claims.TokenId)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Logout(ctx, claims))

	revoked, err = svc.IsRevoked(ctx, claims.TokenId)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.Equal(t, []string{constant.EventUserLogin, constant.EventUserLogout}, publisher.seen())
}

func TestAuthService_Me(t *testing.T) {
	svc := NewAuthService(token.NewIssuer("secret", time.Hour), kv.NewMemoryStore(), nil, logger.NewNopLogger())

	me := svc.Me(entity.GuestIdentity(uuid.New()))
	assert.False(t, me.Authenticated)
	assert.Equal(t, "Guest", me.DisplayName)
	assert.Equal(t, "/user.png", me.AvatarURL)
}
