package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sharezone/internal/domain"
)

type SpaceRepository struct {
	db *sqlx.DB
}

func NewSpaceRepository(db *sqlx.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

// CreateUnique создаёт пространство, процедурно обеспечивая уникальность
// имени и хеша пароля среди живых строк. Вся последовательность
// "освободить устаревшие — проверить живые — вставить" выполняется в одной
// транзакции: два конкурентных создания с одним именем не должны пройти оба.
// UNIQUE-индекса на name/password_hash нет (уникальность действует только
// среди живых строк), поэтому при READ COMMITTED две транзакции не увидят
// вставок друг друга. Конкурентные создания с одним именем или хешем
// сериализуются advisory-блокировками на весь срок транзакции.
func (r *SpaceRepository) CreateUnique(ctx context.Context, name, passwordHash string, expiresAt time.Time) (*domain.Space, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
		return nil, fmt.Errorf("failed to lock space name: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, passwordHash); err != nil {
		return nil, fmt.Errorf("failed to lock space password hash: %w", err)
	}

	// Освобождаем имя: помечаем удалёнными строки с этим именем,
	// чей срок уже истёк, но до которых ещё не дошла фоновая очистка
	_, err = tx.ExecContext(ctx, `
        UPDATE spaces SET is_deleted = TRUE
        WHERE name = $1 AND expires_at <= CURRENT_TIMESTAMP`,
		name)
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim expired spaces by name: %w", err)
	}

	// Проверяем, не занято ли имя живым пространством
	var taken bool
	err = tx.GetContext(ctx, &taken, `
        SELECT EXISTS(
            SELECT 1 FROM spaces
            WHERE name = $1 AND is_deleted = FALSE AND expires_at > CURRENT_TIMESTAMP
        )`,
		name)
	if err != nil {
		return nil, fmt.Errorf("failed to check name uniqueness: %w", err)
	}
	if taken {
		return nil, domain.ErrNameTaken
	}

	// То же самое для хеша пароля: вход в пространство идёт только по
	// паролю, поэтому совпадение хешей открыло бы чужое пространство
	_, err = tx.ExecContext(ctx, `
        UPDATE spaces SET is_deleted = TRUE
        WHERE password_hash = $1 AND expires_at <= CURRENT_TIMESTAMP`,
		passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim expired spaces by password: %w", err)
	}

	err = tx.GetContext(ctx, &taken, `
        SELECT EXISTS(
            SELECT 1 FROM spaces
            WHERE password_hash = $1 AND is_deleted = FALSE AND expires_at > CURRENT_TIMESTAMP
        )`,
		passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check password uniqueness: %w", err)
	}
	if taken {
		return nil, domain.ErrPasswordTaken
	}

	space := &domain.Space{
		Name:         name,
		PasswordHash: passwordHash,
		ExpiresAt:    expiresAt,
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO spaces (name, password_hash, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, last_accessed_at`,
		name, passwordHash, expiresAt,
	).Scan(&space.ID, &space.CreatedAt, &space.LastAccessedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert space: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return space, nil
}

// GetLive возвращает живое пространство. Истёкшие и удалённые строки
// неотличимы от отсутствующих.
func (r *SpaceRepository) GetLive(ctx context.Context, id int64) (*domain.Space, error) {
	var space domain.Space
	query := `
        SELECT * FROM spaces
        WHERE id = $1 AND is_deleted = FALSE AND expires_at > CURRENT_TIMESTAMP`

	err := r.db.GetContext(ctx, &space, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}

	return &space, nil
}

// ListLive возвращает все живые пространства (для перебора при входе по паролю).
func (r *SpaceRepository) ListLive(ctx context.Context) ([]domain.Space, error) {
	var spaces []domain.Space
	query := `
        SELECT * FROM spaces
        WHERE is_deleted = FALSE AND expires_at > CURRENT_TIMESTAMP`

	if err := r.db.SelectContext(ctx, &spaces, query); err != nil {
		return nil, fmt.Errorf("failed to list live spaces: %w", err)
	}

	return spaces, nil
}

// ListVisited возвращает живые пространства, которые посещала данная сессия,
// от недавних к давним. Журнал хранит по строке на визит, поэтому
// дедуплицируем по пространству на чтении; осиротевшие записи журнала
// отфильтровываются условием на живость пространства.
func (r *SpaceRepository) ListVisited(ctx context.Context, token string) ([]domain.Space, error) {
	var spaces []domain.Space
	query := `
        SELECT s.* FROM (
            SELECT DISTINCT ON (sa.space_id) sa.space_id, sa.accessed_at
            FROM space_access sa
            WHERE sa.token = $1
            ORDER BY sa.space_id, sa.accessed_at DESC
        ) last
        INNER JOIN spaces s ON s.id = last.space_id
        WHERE s.is_deleted = FALSE AND s.expires_at > CURRENT_TIMESTAMP
        ORDER BY last.accessed_at DESC`

	if err := r.db.SelectContext(ctx, &spaces, query, token); err != nil {
		return nil, fmt.Errorf("failed to list visited spaces: %w", err)
	}

	return spaces, nil
}

// RecordAccess добавляет строку в журнал посещений.
func (r *SpaceRepository) RecordAccess(ctx context.Context, token string, spaceID int64) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO space_access (token, space_id) VALUES ($1, $2)`,
		token, spaceID)
	if err != nil {
		return fmt.Errorf("failed to record space access: %w", err)
	}
	return nil
}

// TouchLastAccessed обновляет время последнего входа в пространство.
func (r *SpaceRepository) TouchLastAccessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE spaces SET last_accessed_at = CURRENT_TIMESTAMP WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to update last accessed time: %w", err)
	}
	return nil
}

// ExtendExpiry продлевает срок жизни пространства не дальше чем до
// created_at + maxDays. Проверка потолка и запись выполняются одним UPDATE,
// поэтому конкурентные продления не перепрыгнут предел. Запрос, упирающийся
// в потолок, молча обрезается; запрос по строке, уже стоящей ровно на
// потолке, возвращает ErrMaxRetentionReached.
func (r *SpaceRepository) ExtendExpiry(ctx context.Context, id int64, hours, maxDays int) (time.Time, error) {
	var newExpires time.Time
	query := `
        UPDATE spaces
        SET expires_at = LEAST(
            expires_at + make_interval(hours => $2),
            created_at + make_interval(days => $3)
        )
        WHERE id = $1
          AND is_deleted = FALSE
          AND expires_at > CURRENT_TIMESTAMP
          AND expires_at < created_at + make_interval(days => $3)
        RETURNING expires_at`

	err := r.db.QueryRowContext(ctx, query, id, hours, maxDays).Scan(&newExpires)
	if errors.Is(err, sql.ErrNoRows) {
		// Либо строки нет (удалена/истекла), либо она уже на потолке
		if _, getErr := r.GetLive(ctx, id); getErr != nil {
			return time.Time{}, getErr
		}
		return time.Time{}, domain.ErrMaxRetentionReached
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to extend space expiry: %w", err)
	}

	return newExpires, nil
}

// MarkDeletedCascade помечает пространство и все его файлы удалёнными.
// Каскад только логический: физические блобы заберёт фоновая очистка.
func (r *SpaceRepository) MarkDeletedCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE spaces SET is_deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark space deleted: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE files SET is_deleted = TRUE WHERE space_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark space files deleted: %w", err)
	}

	return tx.Commit()
}

// ListExpired возвращает истёкшие, но ещё не помеченные удалёнными пространства.
func (r *SpaceRepository) ListExpired(ctx context.Context) ([]domain.Space, error) {
	var spaces []domain.Space
	query := `
        SELECT * FROM spaces
        WHERE expires_at < CURRENT_TIMESTAMP AND is_deleted = FALSE`

	if err := r.db.SelectContext(ctx, &spaces, query); err != nil {
		return nil, fmt.Errorf("failed to list expired spaces: %w", err)
	}

	return spaces, nil
}

// MarkDeleted помечает одно пространство удалённым.
func (r *SpaceRepository) MarkDeleted(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE spaces SET is_deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark space deleted: %w", err)
	}
	return nil
}
