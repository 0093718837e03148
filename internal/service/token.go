package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ImMohammedAbdulla/Backend-app/internal/auth"
	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/repository"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

var tokenOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_token_operations_total",
		Help: "Token lifecycle operations by operation and result.",
	},
	[]string{"operation", "result"},
)

func recordTokenOp(operation string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrExpired):
		result = "expired"
	case errors.Is(err, apperrors.ErrUnauthorized):
		result = "unauthorized"
	case errors.Is(err, apperrors.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	tokenOperations.WithLabelValues(operation, result).Inc()
}

// TokenService owns the session token lifecycle. It is the only writer of a
// user's refresh token digest.
type TokenService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewTokenService creates a new token service.
func NewTokenService(users repository.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) *TokenService {
	return &TokenService{users: users, tokens: tokens, logger: logger}
}

// Issue loads the user, signs a fresh token pair and stores the refresh
// token digest. An older refresh token stops validating immediately.
func (s *TokenService) Issue(ctx context.Context, userID string) (pair *domain.TokenPair, err error) {
	defer func() { recordTokenOp("issue", err) }()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issueFor(ctx, user)
}

func (s *TokenService) issueFor(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.sign(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, auth.HashToken(pair.RefreshToken)); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return pair, nil
}

func (s *TokenService) sign(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(auth.Subject{
		UserID:   user.ID,
		Email:    user.Email,
		UserName: user.UserName,
		FullName: user.FullName,
	})
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token and returns the user id it carries.
func (s *TokenService) VerifyAccess(token string) (userID string, err error) {
	defer func() { recordTokenOp("verify_access", err) }()

	if token == "" {
		return "", apperrors.Unauthorized("unauthorized request")
	}
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", apperrors.Unauthorized("access token expired")
		}
		return "", apperrors.Unauthorized("invalid access token")
	}
	return claims.UserID, nil
}

// VerifyRefresh validates a refresh token and checks it is the one currently
// stored for its user.
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (userID string, err error) {
	defer func() { recordTokenOp("verify_refresh", err) }()

	user, err := s.verifyRefresh(ctx, token)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *TokenService) verifyRefresh(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("unauthorized request")
	}
	claims, err := s.tokens.ParseRefreshToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != auth.HashToken(token) {
		return nil, apperrors.Expired("refresh token is expired or used")
	}
	return user, nil
}

// Rotate exchanges a refresh token for a new pair. The stored digest is
// swapped only if it still matches the presented token, so of two concurrent
// rotations with the same token exactly one succeeds.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (pair *domain.TokenPair, err error) {
	defer func() { recordTokenOp("rotate", err) }()

	user, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	pair, err = s.sign(user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.users.SwapRefreshToken(ctx, user.ID, user.RefreshTokenHash, auth.HashToken(pair.RefreshToken))
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		s.logger.WarnContext(ctx, "refresh token rotated concurrently",
			slog.String("user_id", user.ID),
		)
		return nil, apperrors.Expired("refresh token is expired or used")
	}

	s.logger.InfoContext(ctx, "tokens rotated", slog.String("user_id", user.ID))
	return pair, nil
}

// Revoke clears the stored refresh token digest.
func (s *TokenService) Revoke(ctx context.Context, userID string) (err error) {
	defer func() { recordTokenOp("revoke", err) }()

	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
