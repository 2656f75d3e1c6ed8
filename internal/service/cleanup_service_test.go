package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharezone/internal/domain"
	"sharezone/internal/security"
)

func newCleanupFixture(t *testing.T) (*CleanupService, *fakeStore, *fakeBlob, *virtualClock) {
	t.Helper()
	clock := newVirtualClock(testStart)
	store := newFakeStore(clock.Now)
	blob := newFakeBlob()

	svc := NewCleanupService(fakeSpaces{store}, fakeFiles{store}, fakeTokens{store}, blob, 10, 24)
	return svc, store, blob, clock
}

func seedSpace(t *testing.T, store *fakeStore, name string, ttl time.Duration) *domain.Space {
	t.Helper()
	space, err := store.CreateUnique(context.Background(), name, security.Hash(name), store.now().Add(ttl))
	require.NoError(t, err)
	return space
}

func seedBlobFile(t *testing.T, store *fakeStore, blob *fakeBlob, spaceID int64, key string, ttl time.Duration) *domain.File {
	t.Helper()
	require.NoError(t, blob.UploadBytes(key, []byte("data")))
	file := &domain.File{
		SpaceID:   spaceID,
		Filename:  "file.bin",
		S3Key:     &key,
		FileType:  domain.FileTypeFile,
		ExpiresAt: store.now().Add(ttl),
	}
	require.NoError(t, store.Create(context.Background(), file))
	return file
}

func TestCleanupSweepExpiredFiles(t *testing.T) {
	svc, store, blob, clock := newCleanupFixture(t)

	space := seedSpace(t, store, "docs", 48*time.Hour)
	expired := seedBlobFile(t, store, blob, space.ID, "blob/expired", 1*time.Hour)
	alive := seedBlobFile(t, store, blob, space.ID, "blob/alive", 48*time.Hour)

	clock.Advance(2 * time.Hour)

	n, err := svc.SweepExpiredFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, store.files[expired.ID].IsDeleted)
	assert.False(t, blob.has("blob/expired"))
	assert.False(t, store.files[alive.ID].IsDeleted)
	assert.True(t, blob.has("blob/alive"))
}

func TestCleanupSweepExpiredFilesIsIdempotent(t *testing.T) {
	svc, store, blob, clock := newCleanupFixture(t)

	space := seedSpace(t, store, "docs", 48*time.Hour)
	seedBlobFile(t, store, blob, space.ID, "blob/expired", 1*time.Hour)

	clock.Advance(2 * time.Hour)

	n, err := svc.SweepExpiredFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Повторный проход не находит работы
	n, err = svc.SweepExpiredFiles(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, blob.deleted, 1)
}

func TestCleanupSweepExpiredFilesSurvivesBlobFailure(t *testing.T) {
	svc, store, blob, clock := newCleanupFixture(t)

	space := seedSpace(t, store, "docs", 48*time.Hour)
	broken := seedBlobFile(t, store, blob, space.ID, "blob/broken", 1*time.Hour)
	healthy := seedBlobFile(t, store, blob, space.ID, "blob/healthy", 1*time.Hour)

	blob.failDelete["blob/broken"] = true
	clock.Advance(2 * time.Hour)

	// Ошибка одного элемента не прерывает проход и не блокирует пометку
	n, err := svc.SweepExpiredFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, store.files[broken.ID].IsDeleted)
	assert.True(t, store.files[healthy.ID].IsDeleted)
	assert.False(t, blob.has("blob/healthy"))
}

func TestCleanupSweepExpiredSpaces(t *testing.T) {
	svc, store, blob, clock := newCleanupFixture(t)

	doomed := seedSpace(t, store, "doomed", 1*time.Hour)
	// Файл живёт дольше пространства, но умирает вместе с ним
	file := seedBlobFile(t, store, blob, doomed.ID, "blob/inside", 48*time.Hour)

	survivor := seedSpace(t, store, "survivor", 48*time.Hour)

	clock.Advance(2 * time.Hour)

	n, err := svc.SweepExpiredSpaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, store.spaces[doomed.ID].IsDeleted)
	assert.True(t, store.files[file.ID].IsDeleted)
	assert.False(t, blob.has("blob/inside"))
	assert.False(t, store.spaces[survivor.ID].IsDeleted)

	n, err = svc.SweepExpiredSpaces(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCleanupSweepExpiredTokens(t *testing.T) {
	svc, store, _, clock := newCleanupFixture(t)

	expired := &domain.AuthToken{Token: "expired", ExpiresAt: clock.Now().Add(time.Hour)}
	require.NoError(t, store.CreateToken(context.Background(), expired))
	alive := &domain.AuthToken{Token: "alive", ExpiresAt: clock.Now().Add(48 * time.Hour)}
	require.NoError(t, store.CreateToken(context.Background(), alive))

	clock.Advance(2 * time.Hour)

	n, err := svc.SweepExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Токены удаляются физически, а не помечаются
	_, ok := store.tokens["expired"]
	assert.False(t, ok)
	_, ok = store.tokens["alive"]
	assert.True(t, ok)
}

func TestCleanupSweepSkipsWhileAnotherRuns(t *testing.T) {
	svc, store, blob, clock := newCleanupFixture(t)

	space := seedSpace(t, store, "docs", 48*time.Hour)
	expired := seedBlobFile(t, store, blob, space.ID, "blob/expired", 1*time.Hour)

	clock.Advance(2 * time.Hour)

	// Пока флаг занят идущим проходом, конкурентный вызов ничего не делает
	require.True(t, svc.fileSweepBusy.CompareAndSwap(false, true))
	n, err := svc.SweepExpiredFiles(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, store.files[expired.ID].IsDeleted)
	assert.True(t, blob.has("blob/expired"))

	// После освобождения флага проход забирает пропущенную работу
	svc.fileSweepBusy.Store(false)
	n, err = svc.SweepExpiredFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.files[expired.ID].IsDeleted)
}

func TestCleanupStartStop(t *testing.T) {
	svc, _, _, _ := newCleanupFixture(t)

	svc.Start()
	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup service did not stop in time")
	}
}
