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

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create вставляет файл или текстовую заметку.
func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (
            space_id, filename, stored_name, s3_key, file_type,
            mime_type, size_bytes, content, preview, expires_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.SpaceID,
		file.Filename,
		file.StoredName,
		file.S3Key,
		file.FileType,
		file.MIMEType,
		file.SizeBytes,
		file.Content,
		file.Preview,
		file.ExpiresAt,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	return nil
}

// GetLive возвращает живой файл; истёкший или удалённый — это ErrNotFound.
func (r *FileRepository) GetLive(ctx context.Context, id int64) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT * FROM files
        WHERE id = $1 AND is_deleted = FALSE AND expires_at > CURRENT_TIMESTAMP`

	err := r.db.GetContext(ctx, &file, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// ListLiveBySpace возвращает живые файлы пространства, новые сверху.
func (r *FileRepository) ListLiveBySpace(ctx context.Context, spaceID int64) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT * FROM files
        WHERE space_id = $1 AND is_deleted = FALSE AND expires_at > CURRENT_TIMESTAMP
        ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &files, query, spaceID); err != nil {
		return nil, fmt.Errorf("failed to list files by space: %w", err)
	}

	return files, nil
}

// ListUndeletedBySpace возвращает все непомеченные файлы пространства,
// включая истёкшие — очистка пространства должна забрать и их блобы.
func (r *FileRepository) ListUndeletedBySpace(ctx context.Context, spaceID int64) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT * FROM files
        WHERE space_id = $1 AND is_deleted = FALSE`

	if err := r.db.SelectContext(ctx, &files, query, spaceID); err != nil {
		return nil, fmt.Errorf("failed to list undeleted files by space: %w", err)
	}

	return files, nil
}

// UpdateTextContent обновляет содержимое, превью и размер. Только для живых
// текстовых заметок: контент файлов с блобом неизменяем. size_bytes обязан
// следовать за контентом: из него выставляется Content-Length при отдаче.
func (r *FileRepository) UpdateTextContent(ctx context.Context, id int64, content, preview string) error {
	query := `
        UPDATE files
        SET content = $2, preview = $3, size_bytes = octet_length($2)
        WHERE id = $1
          AND file_type = 'text'
          AND is_deleted = FALSE
          AND expires_at > CURRENT_TIMESTAMP`

	result, err := r.db.ExecContext(ctx, query, id, content, preview)
	if err != nil {
		return fmt.Errorf("failed to update text content: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// ExtendExpiry — та же семантика потолка, что и у пространств.
func (r *FileRepository) ExtendExpiry(ctx context.Context, id int64, hours, maxDays int) (time.Time, error) {
	var newExpires time.Time
	query := `
        UPDATE files
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
		if _, getErr := r.GetLive(ctx, id); getErr != nil {
			return time.Time{}, getErr
		}
		return time.Time{}, domain.ErrMaxRetentionReached
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to extend file expiry: %w", err)
	}

	return newExpires, nil
}

// MarkDeleted помечает файл удалённым.
func (r *FileRepository) MarkDeleted(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE files SET is_deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark file deleted: %w", err)
	}
	return nil
}

// MarkDeletedBySpace помечает удалёнными все файлы пространства.
func (r *FileRepository) MarkDeletedBySpace(ctx context.Context, spaceID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE files SET is_deleted = TRUE WHERE space_id = $1`, spaceID)
	if err != nil {
		return fmt.Errorf("failed to mark space files deleted: %w", err)
	}
	return nil
}

// ListExpired возвращает истёкшие, но ещё не помеченные удалёнными файлы.
// Очистка выбирает только по is_deleted = FALSE, поэтому повторный проход
// по уже помеченной строке невозможен.
func (r *FileRepository) ListExpired(ctx context.Context) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT * FROM files
        WHERE expires_at < CURRENT_TIMESTAMP AND is_deleted = FALSE`

	if err := r.db.SelectContext(ctx, &files, query); err != nil {
		return nil, fmt.Errorf("failed to list expired files: %w", err)
	}

	return files, nil
}
