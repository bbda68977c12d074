package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/config"
	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/utils"
	"miniola/pkg/logger"
)

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// ClientMeta is recorded on refresh tokens for auditing.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type TokenService interface {
	IssuePair(ctx context.Context, principal models.Principal, meta ClientMeta) (*TokenPair, error)
	// Rotate exchanges a refresh token for a new pair. Presenting a token
	// that was already revoked revokes every token of its owner.
	Rotate(ctx context.Context, rawRefreshToken string, meta ClientMeta) (*TokenPair, error)
	Revoke(ctx context.Context, rawRefreshToken string) error
	RevokeAll(ctx context.Context, userID primitive.ObjectID, reason string) error
	ParseAccessToken(accessToken string) (models.Principal, error)
}

type tokenService struct {
	tokenRepo  interfaces.RefreshTokenRepository
	secret     string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

func NewTokenService(tokenRepo interfaces.RefreshTokenRepository, security *config.SecurityConfig, issuer string, logger *logger.Logger) TokenService {
	return &tokenService{
		tokenRepo:  tokenRepo,
		secret:     security.JWTSecret,
		issuer:     issuer,
		accessTTL:  security.JWTAccessTokenTTL,
		refreshTTL: security.JWTRefreshTokenTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *tokenService) IssuePair(ctx context.Context, principal models.Principal, meta ClientMeta) (*TokenPair, error) {
	raw, record, err := s.newRefreshToken(principal, meta)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, InternalError("failed to store refresh token", err)
	}
	return s.pair(principal, raw, record.ExpiresAt)
}

func (s *tokenService) Rotate(ctx context.Context, rawRefreshToken string, meta ClientMeta) (*TokenPair, error) {
	now := s.now()
	current, err := s.tokenRepo.GetByHash(ctx, utils.HashToken(rawRefreshToken))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, UnauthenticatedError("Invalid refresh token")
	}
	if err != nil {
		return nil, InternalError("failed to load refresh token", err)
	}
	if current.IsRevoked() {
		return nil, s.reuseDetected(ctx, current)
	}
	if current.IsExpired(now) {
		return nil, UnauthenticatedError("Refresh token has expired")
	}

	principal := models.Principal{ID: current.UserID, Role: current.Role}
	raw, next, err := s.newRefreshToken(principal, meta)
	if err != nil {
		return nil, err
	}

	err = s.tokenRepo.Revoke(ctx, current.TokenHash, models.RevokeReasonRotated, next.TokenHash, now)
	if errors.Is(err, interfaces.ErrConflict) {
		// Someone rotated this token between our read and write.
		return nil, s.reuseDetected(ctx, current)
	}
	if err != nil {
		return nil, InternalError("failed to revoke refresh token", err)
	}
	if err := s.tokenRepo.Create(ctx, next); err != nil {
		return nil, InternalError("failed to store refresh token", err)
	}

	return s.pair(principal, raw, next.ExpiresAt)
}

func (s *tokenService) reuseDetected(ctx context.Context, token *models.RefreshToken) error {
	revoked, err := s.tokenRepo.RevokeAllForUser(ctx, token.UserID, models.RevokeReasonReuse, s.now())
	if err != nil {
		return InternalError("failed to revoke tokens after reuse", err)
	}

	s.logger.LogSecurityEvent("refresh_token_reuse", "high", map[string]interface{}{
		"user_id":        token.UserID.Hex(),
		"tokens_revoked": revoked,
	})
	return UnauthorizedError("Refresh token reuse detected; all sessions have been revoked")
}

func (s *tokenService) Revoke(ctx context.Context, rawRefreshToken string) error {
	tokenHash := utils.HashToken(rawRefreshToken)
	token, err := s.tokenRepo.GetByHash(ctx, tokenHash)
	if errors.Is(err, interfaces.ErrNotFound) {
		return UnauthenticatedError("Invalid refresh token")
	}
	if err != nil {
		return InternalError("failed to load refresh token", err)
	}
	if token.IsRevoked() {
		return nil
	}

	err = s.tokenRepo.Revoke(ctx, tokenHash, models.RevokeReasonLogout, "", s.now())
	if err != nil && !errors.Is(err, interfaces.ErrConflict) {
		return InternalError("failed to revoke refresh token", err)
	}
	return nil
}

func (s *tokenService) RevokeAll(ctx context.Context, userID primitive.ObjectID, reason string) error {
	if _, err := s.tokenRepo.RevokeAllForUser(ctx, userID, reason, s.now()); err != nil {
		return InternalError("failed to revoke refresh tokens", err)
	}
	return nil
}

func (s *tokenService) ParseAccessToken(accessToken string) (models.Principal, error) {
	principal, err := utils.ValidateAccessToken(accessToken, s.secret, s.issuer)
	if err != nil {
		return models.Principal{}, newError(KindUnauthenticated, "Invalid or expired access token", err)
	}
	return principal, nil
}

func (s *tokenService) newRefreshToken(principal models.Principal, meta ClientMeta) (string, *models.RefreshToken, error) {
	raw, err := utils.GenerateSecureToken(utils.RefreshTokenBytes)
	if err != nil {
		return "", nil, InternalError("failed to generate refresh token", err)
	}

	now := s.now()
	return raw, &models.RefreshToken{
		UserID:      principal.ID,
		Role:        principal.Role,
		TokenHash:   utils.HashToken(raw),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedByIP: meta.IP,
		UserAgent:   meta.UserAgent,
		CreatedAt:   now,
	}, nil
}

func (s *tokenService) pair(principal models.Principal, rawRefresh string, refreshExpiresAt time.Time) (*TokenPair, error) {
	access, err := utils.GenerateAccessToken(principal, s.secret, s.issuer, s.accessTTL, s.now())
	if err != nil {
		return nil, InternalError("failed to sign access token", err)
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     rawRefresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}
