package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"sharezone/internal/domain"
	"sharezone/internal/service"
)

// FileHandler обслуживает файлы и текстовые заметки пространства. Любая
// операция сначала подтверждает доступ к пространству-владельцу через
// cookie space_{id}.
type FileHandler struct {
	fileService  *service.FileService
	spaceService *service.SpaceService
	maxFileSize  int64
}

type createTextRequest struct {
	Content string `json:"content"`
}

type updateTextRequest struct {
	Content string `json:"content"`
}

func NewFileHandler(fileService *service.FileService, spaceService *service.SpaceService, maxFileSize int64) *FileHandler {
	return &FileHandler{
		fileService:  fileService,
		spaceService: spaceService,
		maxFileSize:  maxFileSize,
	}
}

// authorizeSpace проверяет, что пространство живо и сессия владеет
// cookie доступа к нему.
func (h *FileHandler) authorizeSpace(w http.ResponseWriter, r *http.Request, spaceID int64) bool {
	space, err := h.spaceService.Get(r.Context(), spaceID)
	if err != nil {
		respondServiceError(w, err)
		return false
	}
	if !verifySpaceAccess(r, space) {
		http.Error(w, "Access to space denied", http.StatusForbidden)
		return false
	}
	return true
}

// authorizeFile загружает файл и подтверждает доступ к его пространству.
func (h *FileHandler) authorizeFile(w http.ResponseWriter, r *http.Request) *domain.File {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return nil
	}

	file, err := h.fileService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return nil
	}
	if !h.authorizeSpace(w, r, file.SpaceID) {
		return nil
	}
	return file
}

// ListFiles возвращает живые файлы пространства.
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	id, err := spaceID(r)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}
	if !h.authorizeSpace(w, r, id) {
		return
	}

	files, err := h.fileService.ListBySpace(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if files == nil {
		files = []domain.File{}
	}
	respondJSON(w, http.StatusOK, files)
}

// CreateFile принимает либо JSON с текстовой заметкой, либо multipart
// с файлом — по Content-Type запроса.
func (h *FileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	id, err := spaceID(r)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}
	if !h.authorizeSpace(w, r, id) {
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		h.uploadFile(w, r, id)
		return
	}

	var req createTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Content is required", http.StatusBadRequest)
		return
	}

	file, err := h.fileService.CreateText(r.Context(), id, req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) uploadFile(w http.ResponseWriter, r *http.Request, spaceID int64) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer part.Close()

	file, err := h.fileService.Upload(r.Context(), spaceID, header, part)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	file := h.authorizeFile(w, r)
	if file == nil {
		return
	}
	respondJSON(w, http.StatusOK, file)
}

// GetContent отдаёт содержимое файла для просмотра в браузере.
func (h *FileHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	file := h.authorizeFile(w, r)
	if file == nil {
		return
	}

	body, contentType, err := h.fileService.Content(r.Context(), file.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	if file.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("Error streaming file %d: %v", file.ID, err)
	}
}

// Download отдаёт файл как вложение с исходным именем.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	file := h.authorizeFile(w, r)
	if file == nil {
		return
	}

	body, contentType, err := h.fileService.Content(r.Context(), file.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	defer body.Close()

	filename := file.Filename
	if filename == "" {
		// У текстовых заметок нет исходного имени
		filename = "text.txt"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if file.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("Error streaming file %d: %v", file.ID, err)
	}
}

// UpdateFile обновляет содержимое текстовой заметки.
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	file := h.authorizeFile(w, r)
	if file == nil {
		return
	}

	var req updateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Content is required", http.StatusBadRequest)
		return
	}

	if err := h.fileService.UpdateText(r.Context(), file.ID, req.Content); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ExtendFile продлевает срок жизни файла.
func (h *FileHandler) ExtendFile(w http.ResponseWriter, r *http.Request) {
	file := h.authorizeFile(w, r)
	if file == nil {
		return
	}

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	expiresAt, err := h.fileService.Extend(r.Context(), file.ID, req.Hours)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"expires_at": expiresAt})
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	file := h.authorizeFile(w, r)
	if file == nil {
		return
	}

	if err := h.fileService.Delete(r.Context(), file.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
