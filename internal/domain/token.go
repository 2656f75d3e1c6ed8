package domain

import (
	"time"
)

// AuthToken представляет сессию системного входа. Токен непрозрачный (uuid).
// Инвалидируется при выходе (is_valid = false); строки с истёкшим сроком
// физически удаляются фоновой очисткой.
type AuthToken struct {
	ID        int64     `json:"-" db:"id"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IsValid   bool      `json:"-" db:"is_valid"`
}

// SpaceAccess — строка журнала посещений пространства. Журнал только
// пополняется; на каждый вход пишется новая строка.
type SpaceAccess struct {
	ID         int64     `db:"id"`
	Token      string    `db:"token"`
	SpaceID    int64     `db:"space_id"`
	AccessedAt time.Time `db:"accessed_at"`
}
