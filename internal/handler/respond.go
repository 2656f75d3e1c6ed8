package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sharezone/internal/domain"
	"sharezone/internal/service"
)

const (
	authCookieName = "auth_token"

	// Префикс cookie доступа к пространству: space_{id} = password_hash.
	spaceCookiePrefix = "space_"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// respondServiceError переводит ожидаемые ошибки доменного слоя в HTTP-статусы.
// Всё неожиданное уходит наружу обезличенной 500-кой, детали остаются в логе.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidCredentials):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNameTaken):
		http.Error(w, "Space name is already taken", http.StatusConflict)
	case errors.Is(err, domain.ErrPasswordTaken):
		http.Error(w, "Space password is already taken", http.StatusConflict)
	case errors.Is(err, domain.ErrMaxRetentionReached):
		http.Error(w, "Maximum retention period reached", http.StatusBadRequest)
	case errors.Is(err, service.ErrFileTooLarge):
		http.Error(w, "File is too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, service.ErrInvalidFilename):
		http.Error(w, "Invalid filename", http.StatusBadRequest)
	default:
		log.Printf("Internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func authToken(r *http.Request) string {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
