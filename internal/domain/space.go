package domain

import (
	"time"
)

// Space представляет пространство обмена, защищённое собственным паролем.
// Строка никогда не удаляется физически: по истечении срока или при явном
// удалении выставляется is_deleted.
type Space struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	PasswordHash   string    `json:"password_hash" db:"password_hash"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at" db:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	IsDeleted      bool      `json:"-" db:"is_deleted"`
}
