package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "txt", fileExtension("notes.txt"))
	assert.Equal(t, "gz", fileExtension("archive.tar.gz"))
	assert.Equal(t, "png", fileExtension("PHOTO.PNG"))
	assert.Equal(t, "", fileExtension("Makefile"))
	assert.Equal(t, "", fileExtension("trailing."))
}

func TestValidFilename(t *testing.T) {
	dangerous := map[string]struct{}{"exe": {}, "sh": {}}

	assert.True(t, validFilename("report.pdf", dangerous))
	assert.True(t, validFilename("notes", dangerous))

	assert.False(t, validFilename("", dangerous))
	assert.False(t, validFilename("../secret.txt", dangerous))
	assert.False(t, validFilename("dir/file.txt", dangerous))
	assert.False(t, validFilename("dir\\file.txt", dangerous))
	assert.False(t, validFilename("malware.exe", dangerous))
	assert.False(t, validFilename("script.SH", dangerous))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFilename("report.pdf"))
	assert.Equal(t, "my_file_1.txt", sanitizeFilename("my file(1.txt"))
	assert.Equal(t, "_____.txt", sanitizeFilename("отчёт.txt"))
}

func TestMimeTypeByExtension(t *testing.T) {
	assert.Equal(t, "application/pdf", mimeTypeByExtension("pdf"))
	assert.Equal(t, "image/jpeg", mimeTypeByExtension("jpg"))
	assert.Equal(t, "application/octet-stream", mimeTypeByExtension("xyz"))
	assert.Equal(t, "application/octet-stream", mimeTypeByExtension(""))
}

func TestMakePreview(t *testing.T) {
	assert.Equal(t, "short", makePreview("short"))

	exact := strings.Repeat("a", 100)
	assert.Equal(t, exact, makePreview(exact))

	long := strings.Repeat("a", 101)
	assert.Equal(t, strings.Repeat("a", 100)+"...", makePreview(long))
}

func TestMakePreviewCountsRunes(t *testing.T) {
	// 150 кириллических символов занимают 300 байт; превью режет по рунам
	long := strings.Repeat("ж", 150)
	got := makePreview(long)
	assert.Equal(t, strings.Repeat("ж", 100)+"...", got)
}
