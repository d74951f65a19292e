// Package token issues and verifies the HS256 access tokens handed out after
// sign-in.
package token

import (
	"errors"
	"fmt"
	"time"

	"arcane-chat-be/internal/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	TokenId   string
	UserId    uuid.UUID
	Name      string
	AvatarURL string
	ExpiresAt time.Time
}

func (c *Claims) Identity() entity.Identity {
	return entity.Identity{
		Scope:       entity.UserScope(c.UserId),
		DisplayName: c.Name,
		AvatarURL:   c.AvatarURL,
	}
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(user *entity.User, avatarURL string) (string, *Claims, error) {
	now := i.now()
	c := &Claims{
		TokenId:   uuid.NewString(),
		UserId:    user.Id,
		Name:      user.FullName,
		AvatarURL: avatarURL,
		ExpiresAt: now.Add(i.ttl),
	}
	claims := jwt.MapClaims{
		"jti":     c.TokenId,
		"user_id": c.UserId.String(),
		"name":    c.Name,
		"avatar":  c.AvatarURL,
		"iat":     now.Unix(),
		"exp":     c.ExpiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, c, nil
}

func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userIdStr, _ := mc["user_id"].(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	c := &Claims{UserId: userId}
	c.TokenId, _ = mc["jti"].(string)
	c.Name, _ = mc["name"].(string)
	c.AvatarURL, _ = mc["avatar"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
