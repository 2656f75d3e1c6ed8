package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sharezone/internal/domain"
	"sharezone/internal/service/s3"
)

// Ошибки валидации загрузки. Возвращаются наружу как ожидаемые исходы.
var (
	ErrFileTooLarge    = errors.New("file size exceeds maximum allowed size")
	ErrInvalidFilename = errors.New("invalid filename")
)

// FileService реализует жизненный цикл файлов и текстовых заметок внутри
// пространства: создание, inline-контент и превью, выдача содержимого,
// продление срока и удаление с синхронной зачисткой блоба.
type FileService struct {
	files         FileRepository
	spaces        SpaceRepository
	blob          s3.Storage
	expiresIn     time.Duration
	maxExtendDays int
	maxFileSize   int64
	dangerousExt  map[string]struct{}
	imageExt      map[string]struct{}
	now           func() time.Time
}

func NewFileService(
	files FileRepository,
	spaces SpaceRepository,
	blob s3.Storage,
	expiresHours int,
	maxExtendDays int,
	maxFileSize int64,
	dangerousExt map[string]struct{},
	imageExt map[string]struct{},
) *FileService {
	return &FileService{
		files:         files,
		spaces:        spaces,
		blob:          blob,
		expiresIn:     time.Duration(expiresHours) * time.Hour,
		maxExtendDays: maxExtendDays,
		maxFileSize:   maxFileSize,
		dangerousExt:  dangerousExt,
		imageExt:      imageExt,
		now:           time.Now,
	}
}

// CreateText создаёт текстовую заметку. Содержимое живёт только в строке
// таблицы, блоб не создаётся.
func (s *FileService) CreateText(ctx context.Context, spaceID int64, content string) (*domain.File, error) {
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	if _, err := s.spaces.GetLive(ctx, spaceID); err != nil {
		return nil, err
	}

	file := &domain.File{
		SpaceID:   spaceID,
		FileType:  domain.FileTypeText,
		MIMEType:  "text/plain",
		SizeBytes: int64(len(content)),
		Content:   &content,
		Preview:   makePreview(content),
		ExpiresAt: s.now().Add(s.expiresIn),
	}

	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

// Upload принимает multipart-загрузку: валидирует имя и размер, кладёт байты
// в блоб-хранилище и сохраняет метаданные. Для текстоподобных расширений
// содержимое дублируется в строку ради превью.
func (s *FileService) Upload(ctx context.Context, spaceID int64, header *multipart.FileHeader, file multipart.File) (*domain.File, error) {
	if header == nil || file == nil {
		return nil, fmt.Errorf("file is required")
	}

	if _, err := s.spaces.GetLive(ctx, spaceID); err != nil {
		return nil, err
	}

	if !validFilename(header.Filename, s.dangerousExt) {
		return nil, ErrInvalidFilename
	}
	if header.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}

	// Читаем с запасом в один байт: заголовку multipart доверять нельзя
	data, err := io.ReadAll(io.LimitReader(file, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: max size is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}

	// Отображаемое имя сохраняется как есть (валидация выше уже отсекла
	// пути и опасные расширения); чистится только имя объекта в хранилище
	filename := filepath.Base(header.Filename)
	ext := fileExtension(filename)

	storedName := uuid.NewString()
	if ext != "" {
		storedName += "." + sanitizeFilename(ext)
	}

	now := s.now()
	s3Key := fmt.Sprintf("space_files/%s/%s", now.Format("2006/01/02"), storedName)

	if err := s.blob.UploadBytes(s3Key, data); err != nil {
		return nil, fmt.Errorf("failed to upload file to storage: %w", err)
	}

	fileType := domain.FileTypeFile
	if _, ok := s.imageExt[ext]; ok {
		fileType = domain.FileTypeImage
	}

	f := &domain.File{
		SpaceID:    spaceID,
		Filename:   filename,
		StoredName: storedName,
		S3Key:      &s3Key,
		FileType:   fileType,
		MIMEType:   mimeTypeByExtension(ext),
		SizeBytes:  int64(len(data)),
		ExpiresAt:  now.Add(s.expiresIn),
	}

	// Текстоподобные загрузки получают inline-контент и превью
	if isTextExtension(ext) && utf8.Valid(data) {
		content := string(data)
		f.Content = &content
		f.Preview = makePreview(content)
	}

	if err := s.files.Create(ctx, f); err != nil {
		return nil, err
	}

	return f, nil
}

// ListBySpace возвращает живые файлы пространства, новые сверху.
func (s *FileService) ListBySpace(ctx context.Context, spaceID int64) ([]domain.File, error) {
	if _, err := s.spaces.GetLive(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.files.ListLiveBySpace(ctx, spaceID)
}

// Get возвращает живой файл.
func (s *FileService) Get(ctx context.Context, id int64) (*domain.File, error) {
	return s.files.GetLive(ctx, id)
}

// Content отдаёт содержимое файла и его MIME-тип: текстовые заметки из
// строки таблицы, остальное из блоб-хранилища.
func (s *FileService) Content(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	file, err := s.files.GetLive(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if file.FileType == domain.FileTypeText {
		var content string
		if file.Content != nil {
			content = *file.Content
		}
		return io.NopCloser(strings.NewReader(content)), "text/plain; charset=utf-8", nil
	}

	if !file.HasBlob() {
		return nil, "", domain.ErrNotFound
	}

	obj, err := s.blob.GetObject(ctx, *file.S3Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file from storage: %w", err)
	}

	return obj, file.MIMEType, nil
}

// UpdateText обновляет содержимое текстовой заметки. Контент файлов с блобом
// неизменяем: попытка обновления отвечает ErrNotFound.
func (s *FileService) UpdateText(ctx context.Context, id int64, content string) error {
	return s.files.UpdateTextContent(ctx, id, content, makePreview(content))
}

// Delete удаляет файл по инициативе пользователя: блоб зачищается
// синхронно, затем строка помечается удалённой. Неудачное удаление блоба
// не мешает пометке — максимум остаётся осиротевший блоб.
func (s *FileService) Delete(ctx context.Context, id int64) error {
	file, err := s.files.GetLive(ctx, id)
	if err != nil {
		return err
	}

	if file.HasBlob() {
		if err := s.blob.DeleteObject(*file.S3Key); err != nil {
			log.Printf("Warning: failed to delete file %d from storage: %v", file.ID, err)
		}
	}

	return s.files.MarkDeleted(ctx, file.ID)
}

// Extend продлевает срок жизни файла с тем же потолком, что у пространств.
func (s *FileService) Extend(ctx context.Context, id int64, hours int) (time.Time, error) {
	if hours <= 0 {
		hours = 24
	}
	return s.files.ExtendExpiry(ctx, id, hours, s.maxExtendDays)
}
