package service

import (
	"context"
	"time"

	"sharezone/internal/domain"
)

// Интерфейсы хранилища, которые потребляют сервисы. Реализации живут в
// internal/repository; тесты подставляют in-memory реализации.
// Контракт: методы Get* возвращают domain.ErrNotFound для отсутствующих,
// удалённых и истёкших строк — на этом уровне эти случаи неразличимы.

type SpaceRepository interface {
	// CreateUnique выполняет всю последовательность создания пространства
	// (освободить устаревшие по имени, проверить, освободить по хешу,
	// проверить, вставить) атомарно и возвращает ErrNameTaken либо
	// ErrPasswordTaken при конфликте с живой строкой.
	CreateUnique(ctx context.Context, name, passwordHash string, expiresAt time.Time) (*domain.Space, error)
	GetLive(ctx context.Context, id int64) (*domain.Space, error)
	ListLive(ctx context.Context) ([]domain.Space, error)
	ListVisited(ctx context.Context, token string) ([]domain.Space, error)
	RecordAccess(ctx context.Context, token string, spaceID int64) error
	TouchLastAccessed(ctx context.Context, id int64) error
	// ExtendExpiry атомарно продлевает срок с потолком created_at + maxDays;
	// строка ровно на потолке даёт ErrMaxRetentionReached.
	ExtendExpiry(ctx context.Context, id int64, hours, maxDays int) (time.Time, error)
	MarkDeletedCascade(ctx context.Context, id int64) error
	ListExpired(ctx context.Context) ([]domain.Space, error)
	MarkDeleted(ctx context.Context, id int64) error
}

type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetLive(ctx context.Context, id int64) (*domain.File, error)
	ListLiveBySpace(ctx context.Context, spaceID int64) ([]domain.File, error)
	ListUndeletedBySpace(ctx context.Context, spaceID int64) ([]domain.File, error)
	UpdateTextContent(ctx context.Context, id int64, content, preview string) error
	ExtendExpiry(ctx context.Context, id int64, hours, maxDays int) (time.Time, error)
	MarkDeleted(ctx context.Context, id int64) error
	MarkDeletedBySpace(ctx context.Context, spaceID int64) error
	ListExpired(ctx context.Context) ([]domain.File, error)
}

type TokenRepository interface {
	Create(ctx context.Context, token *domain.AuthToken) error
	GetValid(ctx context.Context, token string) (*domain.AuthToken, error)
	Invalidate(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
