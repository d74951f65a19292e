// FILE: internal/service/auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/dto"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/pkg/token"
	"arcane-chat-be/pkg/events"
	"arcane-chat-be/pkg/kv"
)

const authModule = "AUTH"

type IAuthService interface {
	// Login issues an access token for a user the identity provider vouched for.
	Login(ctx context.Context, user *entity.User, avatarURL string) (*dto.LoginResponse, error)
	// Logout revokes the token until it would have expired anyway.
	Logout(ctx context.Context, claims *token.Claims) error
	IsRevoked(ctx context.Context, tokenId string) (bool, error)
	Me(identity entity.Identity) *dto.IdentityDTO
}

type authService struct {
	issuer         *token.Issuer
	revocations    kv.Store
	eventPublisher EventPublisher
	log            logger.ILogger
}

func NewAuthService(issuer *token.Issuer, revocations kv.Store, eventPublisher EventPublisher, log logger.ILogger) IAuthService {
	return &authService{
		issuer:         issuer,
		revocations:    revocations,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

func revocationKey(tokenId string) string {
	return "revoked:" + tokenId
}

func (s *authService) Login(ctx context.Context, user *entity.User, avatarURL string) (*dto.LoginResponse, error) {
	signed, claims, err := s.issuer.Issue(user, avatarURL)
	if err != nil {
		return nil, err
	}

	// PUBLISH EVENT
	if s.eventPublisher != nil {
		event := events.New(constant.EventUserLogin, map[string]interface{}{"user_id": user.Id}, time.Now())
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.log.Warn(authModule, "Failed to publish USER_LOGIN event", map[string]interface{}{"error": err.Error()})
		}
	}

	identity := claims.Identity()
	return &dto.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.issuer.TTL().Seconds()),
		User: dto.UserDTO{
			Id:        user.Id,
			Email:     user.Email,
			FullName:  user.FullName,
			AvatarURL: identity.Avatar(),
		},
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *token.Claims) error {
	if claims == nil || claims.TokenId == "" {
		return errors.New("token has no id")
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Set(ctx, revocationKey(claims.TokenId), []byte("1"), ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	if s.eventPublisher != nil {
		event := events.New(constant.EventUserLogout, map[string]interface{}{"user_id": claims.UserId}, time.Now())
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.log.Warn(authModule, "Failed to publish USER_LOGOUT event", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

func (s *authService) IsRevoked(ctx context.Context, tokenId string) (bool, error) {
	if tokenId == "" {
		return false, nil
	}
	return s.revocations.Exists(ctx, revocationKey(tokenId))
}

func (s *authService) Me(identity entity.Identity) *dto.IdentityDTO {
	res := toIdentityDTO(identity)
	return &res
}
