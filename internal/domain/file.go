package domain

import (
	"time"
)

// Типы файлов внутри пространства.
const (
	FileTypeText  = "text"  // текстовая заметка, содержимое только в content
	FileTypeImage = "image" // изображение, байты в блоб-хранилище
	FileTypeFile  = "file"  // прочие файлы, байты в блоб-хранилище
)

// File представляет файл или текстовую заметку внутри пространства.
// Инвариант: для file_type = text заполнен Content и S3Key = nil;
// для остальных типов S3Key указывает на объект в блоб-хранилище,
// а Content заполняется только для текстоподобных загрузок (ради превью).
type File struct {
	ID         int64     `json:"id" db:"id"`
	SpaceID    int64     `json:"space_id" db:"space_id"`
	Filename   string    `json:"filename" db:"filename"`
	StoredName string    `json:"stored_name" db:"stored_name"`
	S3Key      *string   `json:"-" db:"s3_key"`
	FileType   string    `json:"file_type" db:"file_type"`
	MIMEType   string    `json:"mime_type" db:"mime_type"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	Content    *string   `json:"content,omitempty" db:"content"`
	Preview    string    `json:"preview" db:"preview"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	IsDeleted  bool      `json:"-" db:"is_deleted"`
}

// HasBlob сообщает, владеет ли файл физическим объектом в блоб-хранилище.
func (f *File) HasBlob() bool {
	return f.S3Key != nil && *f.S3Key != ""
}
