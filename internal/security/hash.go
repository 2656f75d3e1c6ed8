package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Пароли пространств хешируются как SHA-256 с индивидуальной солью в формате
// "соль$хеш". Формат является частью контракта: сохранённый хеш уходит в
// cookie пространства и служит ключом равенства при процедурной проверке
// уникальности пароля, поэтому самоописываемые кодировки вроде bcrypt здесь
// не подходят.

const saltBytes = 16

// Hash возвращает соль и хеш пароля в формате "соль$хеш".
func Hash(password string) string {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		// crypto/rand на поддерживаемых платформах не возвращает ошибок
		panic(err)
	}
	saltHex := hex.EncodeToString(salt)
	sum := sha256.Sum256([]byte(password + saltHex))
	return saltHex + "$" + hex.EncodeToString(sum[:])
}

// Verify проверяет пароль против строки "соль$хеш".
// Некорректный формат строки считается несовпадением.
func Verify(password, hashString string) bool {
	salt, want, ok := strings.Cut(hashString, "$")
	if !ok || salt == "" || want == "" {
		return false
	}
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:]) == want
}
