package domain

import "errors"

// Ожидаемые бизнес-исходы. Возвращаются как типизированные ошибки и
// никогда не приводят к аварийному завершению.
var (
	// ErrNameTaken — живое неистёкшее пространство с таким именем уже есть.
	ErrNameTaken = errors.New("space name already taken")

	// ErrPasswordTaken — хеш пароля совпал с хешем живого пространства.
	ErrPasswordTaken = errors.New("space password already in use")

	// ErrInvalidCredentials — пароль не подошёл ни к одному пространству
	// либо неверный системный пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound — строка отсутствует, помечена удалённой или истекла.
	// Истечение срока на уровне API неотличимо от отсутствия.
	ErrNotFound = errors.New("not found")

	// ErrMaxRetentionReached — expires_at уже равен created_at + максимум.
	ErrMaxRetentionReached = errors.New("maximum retention reached")
)
