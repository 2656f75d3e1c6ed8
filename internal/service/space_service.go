package service

import (
	"context"
	"fmt"
	"time"

	"sharezone/internal/domain"
	"sharezone/internal/security"
)

// SpaceService реализует жизненный цикл пространств: создание с процедурной
// уникальностью, вход по паролю, продление срока и каскадное удаление.
type SpaceService struct {
	spaces        SpaceRepository
	expiresIn     time.Duration
	maxExtendDays int
	now           func() time.Time
}

func NewSpaceService(spaces SpaceRepository, expiresHours, maxExtendDays int) *SpaceService {
	return &SpaceService{
		spaces:        spaces,
		expiresIn:     time.Duration(expiresHours) * time.Hour,
		maxExtendDays: maxExtendDays,
		now:           time.Now,
	}
}

// Create создаёт пространство. Уникальность имени и хеша пароля среди живых
// строк обеспечивает CreateUnique одной транзакцией; истёкшие строки с тем же
// именем или хешем при этом помечаются удалёнными (ленивое истечение).
func (s *SpaceService) Create(ctx context.Context, name, password string) (*domain.Space, error) {
	if name == "" || password == "" {
		return nil, fmt.Errorf("name and password are required")
	}

	passwordHash := security.Hash(password)
	expiresAt := s.now().Add(s.expiresIn)

	return s.spaces.CreateUnique(ctx, name, passwordHash, expiresAt)
}

// Enter ищет пространство по паролю. Имя при входе не передаётся, а соль
// зашита в каждую строку, поэтому индексный поиск невозможен: перебираем все
// живые пространства и сверяем хеш у каждого. Это O(n) по числу живых
// пространств — известный предел масштабирования при входе только по паролю.
func (s *SpaceService) Enter(ctx context.Context, password string) (*domain.Space, error) {
	if password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	spaces, err := s.spaces.ListLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}

	for i := range spaces {
		if security.Verify(password, spaces[i].PasswordHash) {
			if err := s.spaces.TouchLastAccessed(ctx, spaces[i].ID); err != nil {
				return nil, fmt.Errorf("failed to update last accessed time: %w", err)
			}
			spaces[i].LastAccessedAt = s.now()
			return &spaces[i], nil
		}
	}

	return nil, domain.ErrInvalidCredentials
}

// Get возвращает живое пространство по ID.
func (s *SpaceService) Get(ctx context.Context, id int64) (*domain.Space, error) {
	return s.spaces.GetLive(ctx, id)
}

// ListVisited возвращает живые пространства, которые посещала сессия.
func (s *SpaceService) ListVisited(ctx context.Context, token string) ([]domain.Space, error) {
	return s.spaces.ListVisited(ctx, token)
}

// RecordAccess пишет визит в журнал посещений.
func (s *SpaceService) RecordAccess(ctx context.Context, token string, spaceID int64) error {
	return s.spaces.RecordAccess(ctx, token, spaceID)
}

// Extend продлевает срок жизни пространства на hours часов, но не дальше
// created_at + maxExtendDays. Запрос поверх потолка молча обрезается;
// если строка уже стоит ровно на потолке — ErrMaxRetentionReached.
func (s *SpaceService) Extend(ctx context.Context, id int64, hours int) (time.Time, error) {
	if hours <= 0 {
		hours = 24
	}
	return s.spaces.ExtendExpiry(ctx, id, hours, s.maxExtendDays)
}

// Delete помечает пространство и все его файлы удалёнными. Блобы файлов
// при этом не трогаются: их заберёт фоновая очистка.
func (s *SpaceService) Delete(ctx context.Context, id int64) error {
	return s.spaces.MarkDeletedCascade(ctx, id)
}
