package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sharezone/internal/domain"
	"sharezone/internal/service"
)

// SpaceHandler обслуживает пространства: создание, вход по паролю, список
// посещённых, продление срока и удаление. Доступ к конкретному пространству
// подтверждается cookie space_{id} со значением password_hash.
type SpaceHandler struct {
	spaceService    *service.SpaceService
	cookieMaxAgeSec int
}

type createSpaceRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type enterSpaceRequest struct {
	Password string `json:"password"`
}

type extendRequest struct {
	Hours int `json:"hours"`
}

func NewSpaceHandler(spaceService *service.SpaceService, spaceCookieDays int) *SpaceHandler {
	return &SpaceHandler{
		spaceService:    spaceService,
		cookieMaxAgeSec: spaceCookieDays * 24 * 3600,
	}
}

func (h *SpaceHandler) setSpaceCookie(w http.ResponseWriter, space *domain.Space) {
	http.SetCookie(w, &http.Cookie{
		Name:     spaceCookiePrefix + strconv.FormatInt(space.ID, 10),
		Value:    space.PasswordHash,
		Path:     "/",
		MaxAge:   h.cookieMaxAgeSec,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// verifySpaceAccess сверяет cookie space_{id} с хешем пароля пространства.
func verifySpaceAccess(r *http.Request, space *domain.Space) bool {
	cookie, err := r.Cookie(spaceCookiePrefix + strconv.FormatInt(space.ID, 10))
	if err != nil {
		return false
	}
	return cookie.Value == space.PasswordHash
}

func spaceID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid space ID: %w", err)
	}
	return id, nil
}

func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	var req createSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Password == "" {
		http.Error(w, "Name and password are required", http.StatusBadRequest)
		return
	}

	space, err := h.spaceService.Create(r.Context(), req.Name, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.spaceService.RecordAccess(r.Context(), authToken(r), space.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	h.setSpaceCookie(w, space)
	respondJSON(w, http.StatusCreated, space)
}

// EnterSpace ищет пространство по паролю и открывает к нему доступ.
func (h *SpaceHandler) EnterSpace(w http.ResponseWriter, r *http.Request) {
	var req enterSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	space, err := h.spaceService.Enter(r.Context(), req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.spaceService.RecordAccess(r.Context(), authToken(r), space.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	h.setSpaceCookie(w, space)
	respondJSON(w, http.StatusOK, space)
}

// ListVisited возвращает живые пространства, которые посещала текущая сессия.
func (h *SpaceHandler) ListVisited(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.spaceService.ListVisited(r.Context(), authToken(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if spaces == nil {
		spaces = []domain.Space{}
	}
	respondJSON(w, http.StatusOK, spaces)
}

func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	id, err := spaceID(r)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}

	space, err := h.spaceService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !verifySpaceAccess(r, space) {
		http.Error(w, "Access to space denied", http.StatusForbidden)
		return
	}

	respondJSON(w, http.StatusOK, space)
}

// RecordAccess фиксирует визит в журнале и обновляет last_accessed_at.
func (h *SpaceHandler) RecordAccess(w http.ResponseWriter, r *http.Request) {
	id, err := spaceID(r)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}

	space, err := h.spaceService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !verifySpaceAccess(r, space) {
		http.Error(w, "Access to space denied", http.StatusForbidden)
		return
	}

	if err := h.spaceService.RecordAccess(r.Context(), authToken(r), space.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ExtendSpace продлевает срок жизни пространства.
func (h *SpaceHandler) ExtendSpace(w http.ResponseWriter, r *http.Request) {
	id, err := spaceID(r)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}

	space, err := h.spaceService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !verifySpaceAccess(r, space) {
		http.Error(w, "Access to space denied", http.StatusForbidden)
		return
	}

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	expiresAt, err := h.spaceService.Extend(r.Context(), id, req.Hours)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"expires_at": expiresAt})
}

func (h *SpaceHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	id, err := spaceID(r)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}

	space, err := h.spaceService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !verifySpaceAccess(r, space) {
		http.Error(w, "Access to space denied", http.StatusForbidden)
		return
	}

	if err := h.spaceService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	// Cookie доступа больше не нужна
	http.SetCookie(w, &http.Cookie{
		Name:     spaceCookiePrefix + strconv.FormatInt(id, 10),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
