package service

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// previewLength — столько символов содержимого попадает в превью.
const previewLength = 100

// Расширения, содержимое которых считается текстовым: такие загрузки
// получают inline-контент и превью.
var textExtensions = map[string]struct{}{
	"txt": {}, "md": {}, "log": {}, "json": {}, "xml": {}, "yaml": {},
	"yml": {}, "csv": {}, "ini": {}, "conf": {}, "py": {}, "js": {},
	"html": {}, "css": {}, "java": {}, "cpp": {}, "c": {}, "h": {},
	"go": {}, "rs": {}, "sh": {}, "bat": {},
}

// Таблица MIME-типов по расширению; всё незнакомое отдаётся как octet-stream.
var mimeTypes = map[string]string{
	"txt":  "text/plain",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"7z":   "application/x-7z-compressed",
}

// fileExtension возвращает расширение без точки, в нижнем регистре.
func fileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// validFilename отклоняет пустые имена, попытки выхода из каталога и
// опасные расширения.
func validFilename(filename string, dangerous map[string]struct{}) bool {
	if filename == "" {
		return false
	}
	if strings.Contains(filename, "..") ||
		strings.Contains(filename, "/") ||
		strings.Contains(filename, "\\") {
		return false
	}
	if _, ok := dangerous[fileExtension(filename)]; ok {
		return false
	}
	return true
}

// sanitizeFilename убирает путь и заменяет небезопасные символы. Применяется
// к именам объектов в блоб-хранилище; отображаемое имя файла не трогается.
func sanitizeFilename(filename string) string {
	name := filepath.Base(filename)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// isTextExtension сообщает, считается ли содержимое файла текстовым.
func isTextExtension(ext string) bool {
	_, ok := textExtensions[ext]
	return ok
}

// mimeTypeByExtension возвращает MIME-тип по расширению файла.
func mimeTypeByExtension(ext string) string {
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// makePreview обрезает содержимое до первых previewLength символов,
// добавляя многоточие при усечении. Срез по рунам, не по байтам.
func makePreview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "..."
}
