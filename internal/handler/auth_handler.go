package handler

import (
	"encoding/json"
	"net/http"

	"sharezone/internal/service"
)

// AuthHandler обслуживает системный вход: единый пароль сервиса и
// cookie-сессия поверх него.
type AuthHandler struct {
	authService     *service.AuthService
	cookieMaxAgeSec int
}

type loginRequest struct {
	Password string `json:"password"`
}

func NewAuthHandler(authService *service.AuthService, tokenExpiresDays int) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		cookieMaxAgeSec: tokenExpiresDays * 24 * 3600,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.authService.Login(r.Context(), req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token.Token,
		Path:     "/",
		MaxAge:   h.cookieMaxAgeSec,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), authToken(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Verify отвечает 200, если сессия действительна, иначе 401.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Validate(r.Context(), authToken(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequireAuth — middleware, пускающее дальше только действительные сессии.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.authService.Validate(r.Context(), authToken(r)); err != nil {
			respondServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
