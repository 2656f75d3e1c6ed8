package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"sharezone/internal/domain"
	"sharezone/internal/service/s3"
)

// fakeStore — in-memory реализация всех трёх репозиториев с управляемыми
// часами. Повторяет контракт SQL-реализаций: живость строк считается от
// s.now(), уникальность имени и хеша пароля проверяется процедурно среди
// живых строк.
type fakeStore struct {
	mu sync.Mutex

	now func() time.Time

	nextSpaceID int64
	nextFileID  int64
	nextTokenID int64

	spaces   map[int64]*domain.Space
	files    map[int64]*domain.File
	tokens   map[string]*domain.AuthToken
	accesses []domain.SpaceAccess
}

func newFakeStore(now func() time.Time) *fakeStore {
	return &fakeStore{
		now:    now,
		spaces: make(map[int64]*domain.Space),
		files:  make(map[int64]*domain.File),
		tokens: make(map[string]*domain.AuthToken),
	}
}

func (s *fakeStore) spaceLive(sp *domain.Space) bool {
	return !sp.IsDeleted && sp.ExpiresAt.After(s.now())
}

func (s *fakeStore) fileLive(f *domain.File) bool {
	return !f.IsDeleted && f.ExpiresAt.After(s.now())
}

// --- SpaceRepository ---

func (s *fakeStore) CreateUnique(_ context.Context, name, passwordHash string, expiresAt time.Time) (*domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Освобождаем имя: истёкшие строки с тем же именем помечаются удалёнными
	for _, sp := range s.spaces {
		if sp.Name == name && !sp.ExpiresAt.After(now) {
			sp.IsDeleted = true
		}
	}
	for _, sp := range s.spaces {
		if sp.Name == name && s.spaceLive(sp) {
			return nil, domain.ErrNameTaken
		}
	}

	for _, sp := range s.spaces {
		if sp.PasswordHash == passwordHash && !sp.ExpiresAt.After(now) {
			sp.IsDeleted = true
		}
	}
	for _, sp := range s.spaces {
		if sp.PasswordHash == passwordHash && s.spaceLive(sp) {
			return nil, domain.ErrPasswordTaken
		}
	}

	s.nextSpaceID++
	sp := &domain.Space{
		ID:             s.nextSpaceID,
		Name:           name,
		PasswordHash:   passwordHash,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      expiresAt,
	}
	s.spaces[sp.ID] = sp

	out := *sp
	return &out, nil
}

func (s *fakeStore) GetLive(_ context.Context, id int64) (*domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spaces[id]
	if !ok || !s.spaceLive(sp) {
		return nil, domain.ErrNotFound
	}
	out := *sp
	return &out, nil
}

func (s *fakeStore) ListLive(_ context.Context) ([]domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Space
	for _, sp := range s.spaces {
		if s.spaceLive(sp) {
			out = append(out, *sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) ListVisited(_ context.Context, token string) ([]domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]time.Time)
	for _, a := range s.accesses {
		if a.Token == token && a.AccessedAt.After(seen[a.SpaceID]) {
			seen[a.SpaceID] = a.AccessedAt
		}
	}

	var out []domain.Space
	for id := range seen {
		if sp, ok := s.spaces[id]; ok && s.spaceLive(sp) {
			out = append(out, *sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return seen[out[i].ID].After(seen[out[j].ID])
	})
	return out, nil
}

func (s *fakeStore) RecordAccess(_ context.Context, token string, spaceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accesses = append(s.accesses, domain.SpaceAccess{
		Token:      token,
		SpaceID:    spaceID,
		AccessedAt: s.now(),
	})
	return nil
}

func (s *fakeStore) TouchLastAccessed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spaces[id]
	if !ok {
		return domain.ErrNotFound
	}
	sp.LastAccessedAt = s.now()
	return nil
}

func (s *fakeStore) ExtendExpiry(_ context.Context, id int64, hours, maxDays int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spaces[id]
	if !ok || !s.spaceLive(sp) {
		return time.Time{}, domain.ErrNotFound
	}

	limit := sp.CreatedAt.Add(time.Duration(maxDays) * 24 * time.Hour)
	if !sp.ExpiresAt.Before(limit) {
		return time.Time{}, domain.ErrMaxRetentionReached
	}

	next := sp.ExpiresAt.Add(time.Duration(hours) * time.Hour)
	if next.After(limit) {
		next = limit
	}
	sp.ExpiresAt = next
	return next, nil
}

func (s *fakeStore) MarkDeletedCascade(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spaces[id]
	if !ok {
		return domain.ErrNotFound
	}
	sp.IsDeleted = true
	for _, f := range s.files {
		if f.SpaceID == id {
			f.IsDeleted = true
		}
	}
	return nil
}

func (s *fakeStore) ListExpired(_ context.Context) ([]domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []domain.Space
	for _, sp := range s.spaces {
		if !sp.IsDeleted && !sp.ExpiresAt.After(now) {
			out = append(out, *sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) MarkDeleted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.spaces[id]
	if !ok {
		return domain.ErrNotFound
	}
	sp.IsDeleted = true
	return nil
}

// --- FileRepository ---

func (s *fakeStore) Create(_ context.Context, f *domain.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFileID++
	f.ID = s.nextFileID
	f.CreatedAt = s.now()

	stored := *f
	s.files[f.ID] = &stored
	return nil
}

func (s *fakeStore) GetLiveFile(_ context.Context, id int64) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || !s.fileLive(f) {
		return nil, domain.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (s *fakeStore) ListLiveBySpace(_ context.Context, spaceID int64) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.File
	for _, f := range s.files {
		if f.SpaceID == spaceID && s.fileLive(f) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeStore) ListUndeletedBySpace(_ context.Context, spaceID int64) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.File
	for _, f := range s.files {
		if f.SpaceID == spaceID && !f.IsDeleted {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateTextContent(_ context.Context, id int64, content, preview string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || !s.fileLive(f) || f.FileType != domain.FileTypeText {
		return domain.ErrNotFound
	}
	f.Content = &content
	f.Preview = preview
	f.SizeBytes = int64(len(content))
	return nil
}

func (s *fakeStore) ExtendFileExpiry(_ context.Context, id int64, hours, maxDays int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || !s.fileLive(f) {
		return time.Time{}, domain.ErrNotFound
	}

	limit := f.CreatedAt.Add(time.Duration(maxDays) * 24 * time.Hour)
	if !f.ExpiresAt.Before(limit) {
		return time.Time{}, domain.ErrMaxRetentionReached
	}

	next := f.ExpiresAt.Add(time.Duration(hours) * time.Hour)
	if next.After(limit) {
		next = limit
	}
	f.ExpiresAt = next
	return next, nil
}

func (s *fakeStore) MarkFileDeleted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.IsDeleted = true
	return nil
}

func (s *fakeStore) MarkDeletedBySpace(_ context.Context, spaceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.files {
		if f.SpaceID == spaceID {
			f.IsDeleted = true
		}
	}
	return nil
}

func (s *fakeStore) ListExpiredFiles(_ context.Context) ([]domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []domain.File
	for _, f := range s.files {
		if !f.IsDeleted && !f.ExpiresAt.After(now) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- TokenRepository ---

func (s *fakeStore) CreateToken(_ context.Context, t *domain.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTokenID++
	t.ID = s.nextTokenID
	t.CreatedAt = s.now()
	t.IsValid = true

	stored := *t
	s.tokens[t.Token] = &stored
	return nil
}

func (s *fakeStore) GetValid(_ context.Context, token string) (*domain.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok || !t.IsValid || !t.ExpiresAt.After(s.now()) {
		return nil, domain.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *fakeStore) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tokens[token]; ok {
		t.IsValid = false
	}
	return nil
}

func (s *fakeStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for token, t := range s.tokens {
		if !t.ExpiresAt.After(now) {
			delete(s.tokens, token)
			n++
		}
	}
	return n, nil
}

// Адаптеры разводят одноимённые методы файлового и пространственного
// репозиториев по разным интерфейсам.

type fakeSpaces struct{ *fakeStore }

type fakeFiles struct{ *fakeStore }

func (f fakeFiles) GetLive(ctx context.Context, id int64) (*domain.File, error) {
	return f.GetLiveFile(ctx, id)
}

func (f fakeFiles) ExtendExpiry(ctx context.Context, id int64, hours, maxDays int) (time.Time, error) {
	return f.ExtendFileExpiry(ctx, id, hours, maxDays)
}

func (f fakeFiles) MarkDeleted(ctx context.Context, id int64) error {
	return f.MarkFileDeleted(ctx, id)
}

func (f fakeFiles) ListExpired(ctx context.Context) ([]domain.File, error) {
	return f.ListExpiredFiles(ctx)
}

type fakeTokens struct{ *fakeStore }

func (t fakeTokens) Create(ctx context.Context, token *domain.AuthToken) error {
	return t.CreateToken(ctx, token)
}

// Интерфейсные проверки
var (
	_ SpaceRepository = fakeSpaces{}
	_ FileRepository  = fakeFiles{}
	_ TokenRepository = fakeTokens{}
)

// fakeBlob — in-memory блоб-хранилище с инъекцией ошибок удаления.
type fakeBlob struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	failDelete map[string]bool
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{
		objects:    make(map[string][]byte),
		failDelete: make(map[string]bool),
	}
}

func (b *fakeBlob) UploadBytes(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

type fakeObject struct {
	io.ReadCloser
	size int64
}

func (o *fakeObject) ContentLength() int64 { return o.size }
func (o *fakeObject) ContentType() string  { return "application/octet-stream" }

func (b *fakeBlob) GetObject(_ context.Context, key string) (s3.S3Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return &fakeObject{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		size:       int64(len(data)),
	}, nil
}

func (b *fakeBlob) DeleteObject(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failDelete[key] {
		return fmt.Errorf("simulated storage failure for %s", key)
	}
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlob) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

var _ s3.Storage = (*fakeBlob)(nil)

// virtualClock — управляемые часы для тестов жизненного цикла.
type virtualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newVirtualClock(start time.Time) *virtualClock {
	return &virtualClock{t: start}
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *virtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
