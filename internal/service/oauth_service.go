// FILE: internal/service/oauth_service.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"arcane-chat-be/internal/config"
	"arcane-chat-be/internal/dto"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/repository/specification"
	"arcane-chat-be/internal/repository/unitofwork"
	"arcane-chat-be/pkg/kv"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthModule    = "OAUTH"
	oauthStateTTL  = 10 * time.Minute
	googleUserInfo = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrInvalidOAuthState   = errors.New("invalid or expired oauth state")
)

type IOAuthService interface {
	GetLoginURL(ctx context.Context, provider string) (string, error)
	HandleCallback(ctx context.Context, provider, code, state string) (*dto.LoginResponse, error)
}

type oauthService struct {
	uowFactory  unitofwork.RepositoryFactory
	authService IAuthService
	states      kv.Store
	googleConf  *oauth2.Config
	userInfoURL string
	log         logger.ILogger
}

func NewOAuthService(uowFactory unitofwork.RepositoryFactory, authService IAuthService, states kv.Store, cfg config.AuthConfig, log logger.ILogger) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	log.Info(oauthModule, "OAuth service initialized", map[string]interface{}{
		"redirect_url": conf.RedirectURL,
	})

	return &oauthService{
		uowFactory:  uowFactory,
		authService: authService,
		states:      states,
		googleConf:  conf,
		userInfoURL: googleUserInfo,
		log:         log,
	}
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

func (s *oauthService) GetLoginURL(ctx context.Context, provider string) (string, error) {
	if provider != "google" {
		return "", ErrUnsupportedProvider
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	if err := s.states.Set(ctx, stateKey(state), []byte(provider), oauthStateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}

	return s.googleConf.AuthCodeURL(state), nil
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *oauthService) HandleCallback(ctx context.Context, provider, code, state string) (*dto.LoginResponse, error) {
	if provider != "google" {
		return nil, ErrUnsupportedProvider
	}

	if ok, err := s.states.Exists(ctx, stateKey(state)); err != nil || !ok {
		return nil, ErrInvalidOAuthState
	}
	_ = s.states.Delete(ctx, stateKey(state))

	oauthToken, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		s.log.Error(oauthModule, "Code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	gUser, err := s.fetchUser(ctx, oauthToken)
	if err != nil {
		s.log.Error(oauthModule, "Failed getting user info", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	user, err := s.upsertUser(ctx, gUser)
	if err != nil {
		return nil, err
	}

	s.log.Info(oauthModule, "User signed in", map[string]interface{}{
		"user_id": user.Id,
		"email":   user.Email,
	})
	return s.authService.Login(ctx, user, gUser.Picture)
}

func (s *oauthService) fetchUser(ctx context.Context, oauthToken *oauth2.Token) (*googleUser, error) {
	client := s.googleConf.Client(ctx, oauthToken)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response: %w", err)
	}

	var gUser googleUser
	if err := json.Unmarshal(content, &gUser); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if gUser.Email == "" {
		return nil, errors.New("identity provider returned no email")
	}
	return &gUser, nil
}

// upsertUser finds or creates the local user and records the provider link.
func (s *oauthService) upsertUser(ctx context.Context, gUser *googleUser) (*entity.User, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: gUser.Email})
	if err != nil {
		uow.Rollback()
		return nil, err
	}

	now := time.Now()
	var avatar *string
	if gUser.Picture != "" {
		avatar = &gUser.Picture
	}

	if user == nil {
		user = &entity.User{
			Id:        uuid.New(),
			Email:     gUser.Email,
			FullName:  gUser.Name,
			AvatarURL: avatar,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			uow.Rollback()
			return nil, fmt.Errorf("create user: %w", err)
		}
	} else {
		user.FullName = gUser.Name
		user.AvatarURL = avatar
		user.UpdatedAt = now
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			uow.Rollback()
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	userProvider := &entity.UserProvider{
		Id:             uuid.New(),
		UserId:         user.Id,
		ProviderName:   "google",
		ProviderUserId: gUser.ID,
		AvatarURL:      gUser.Picture,
		CreatedAt:      now,
	}
	if err := uow.UserRepository().SaveUserProvider(ctx, userProvider); err != nil {
		uow.Rollback()
		return nil, fmt.Errorf("failed to save provider info: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}
