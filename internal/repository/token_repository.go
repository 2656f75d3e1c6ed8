package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sharezone/internal/domain"
)

type TokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create сохраняет новый токен системного входа.
func (r *TokenRepository) Create(ctx context.Context, token *domain.AuthToken) error {
	query := `
        INSERT INTO auth_tokens (token, expires_at)
        VALUES ($1, $2)
        RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, token.Token, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert auth token: %w", err)
	}

	token.IsValid = true
	return nil
}

// GetValid возвращает действующий токен: не отозванный и не истёкший.
func (r *TokenRepository) GetValid(ctx context.Context, token string) (*domain.AuthToken, error) {
	var t domain.AuthToken
	query := `
        SELECT * FROM auth_tokens
        WHERE token = $1 AND is_valid = TRUE AND expires_at > CURRENT_TIMESTAMP`

	err := r.db.GetContext(ctx, &t, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auth token: %w", err)
	}

	return &t, nil
}

// Invalidate отзывает токен при выходе из системы.
func (r *TokenRepository) Invalidate(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE auth_tokens SET is_valid = FALSE WHERE token = $1`,
		token)
	if err != nil {
		return fmt.Errorf("failed to invalidate auth token: %w", err)
	}
	return nil
}

// DeleteExpired физически удаляет все истёкшие токены, включая отозванные.
// Единственное место, где строки удаляются, а не помечаются.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
        DELETE FROM auth_tokens WHERE expires_at < CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return deleted, nil
}
