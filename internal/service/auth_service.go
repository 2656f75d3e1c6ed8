package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sharezone/internal/domain"
)

// AuthService отвечает за системный вход: единый пароль на весь сервис,
// по которому выдаётся непрозрачный токен сессии.
type AuthService struct {
	tokens         TokenRepository
	systemPassword string
	tokenTTL       time.Duration
	now            func() time.Time
}

func NewAuthService(tokens TokenRepository, systemPassword string, tokenExpiresDays int) *AuthService {
	return &AuthService{
		tokens:         tokens,
		systemPassword: systemPassword,
		tokenTTL:       time.Duration(tokenExpiresDays) * 24 * time.Hour,
		now:            time.Now,
	}
}

// Login проверяет системный пароль и создаёт токен сессии.
func (s *AuthService) Login(ctx context.Context, password string) (*domain.AuthToken, error) {
	if password != s.systemPassword {
		return nil, domain.ErrInvalidCredentials
	}

	token := &domain.AuthToken{
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.tokenTTL),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create auth token: %w", err)
	}

	return token, nil
}

// Validate проверяет, действует ли токен сессии.
func (s *AuthService) Validate(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrInvalidCredentials
	}

	_, err := s.tokens.GetValid(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidCredentials
	}
	return err
}

// Logout отзывает токен. Физически строку удалит фоновая очистка,
// когда истечёт срок.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.tokens.Invalidate(ctx, token)
}
