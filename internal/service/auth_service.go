package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AuthService coordinates registration, login and token refresh.
type AuthService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL()),
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account with role USER and performs the implicit
// first login, returning the account together with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.Account, *domain.TokenPair, error) {
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, nil, apperrors.NewDuplicateResource("username already in use", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewDuplicateResource("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.EventAccountRegistered, account.Username, events.RegisteredPayload{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      string(account.Role),
	})
	return account, pair, nil
}

// Login authenticates by username and password. Unknown usernames and wrong
// passwords yield the identical generic failure so callers cannot enumerate
// accounts.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.publish(ctx, events.EventLoginFailed, username, nil)
			return nil, apperrors.NewAuthenticationFailed()
		}
		return nil, err
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		s.publish(ctx, events.EventLoginFailed, username, nil)
		return nil, apperrors.NewAuthenticationFailed()
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventLoginSucceeded, account.Username, nil)
	return pair, nil
}

// Refresh verifies the presented refresh token, reloads the account it names
// and mints a new access token for the same subject and role. The refresh
// token itself is not rotated; it stays valid until its own expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.tokenMgr.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", time.Time{}, apperrors.NewTokenExpired()
		}
		return "", time.Time{}, apperrors.NewTokenInvalid()
	}

	account, err := s.accounts.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, apperrors.NewAuthenticationFailed()
		}
		return "", time.Time{}, err
	}

	token, expiresAt, err := s.tokenMgr.IssueAccessToken(account.Username, account.Role)
	if err != nil {
		return "", time.Time{}, err
	}

	s.publish(ctx, events.EventTokenRefreshed, account.Username, nil)
	return token, expiresAt, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issuePair(account *domain.Account) (*domain.TokenPair, error) {
	accessToken, accessExp, err := s.tokenMgr.IssueAccessToken(account.Username, account.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.tokenMgr.IssueRefreshToken(account.Username, account.Role)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subject string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
