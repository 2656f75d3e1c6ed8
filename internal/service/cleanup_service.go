package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"sharezone/internal/metrics"
	"sharezone/internal/service/s3"
)

// CleanupService — фоновая очистка истёкших строк. Три независимых цикла:
// файлы и пространства по короткому интервалу, токены по длинному.
// Каждая итерация идемпотентна и переживает ошибки отдельных элементов:
// что не зачистилось сейчас, заберёт следующий проход.
type CleanupService struct {
	spaces SpaceRepository
	files  FileRepository
	tokens TokenRepository
	blob   s3.Storage

	interval      time.Duration
	tokenInterval time.Duration

	// Защита от наложения проходов. Тикерный цикл вызывает проходы
	// синхронно и сам по себе не накладывается; флаги охраняют сами
	// Sweep-методы от конкурентных прямых вызовов.
	fileSweepBusy  atomic.Bool
	spaceSweepBusy atomic.Bool
	tokenSweepBusy atomic.Bool

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewCleanupService(
	spaces SpaceRepository,
	files FileRepository,
	tokens TokenRepository,
	blob s3.Storage,
	intervalMinutes int,
	tokenIntervalHours int,
) *CleanupService {
	return &CleanupService{
		spaces:        spaces,
		files:         files,
		tokens:        tokens,
		blob:          blob,
		interval:      time.Duration(intervalMinutes) * time.Minute,
		tokenInterval: time.Duration(tokenIntervalHours) * time.Hour,
		quit:          make(chan struct{}),
	}
}

// Start запускает фоновые циклы очистки.
func (s *CleanupService) Start() {
	s.wg.Add(3)
	go s.loop(s.interval, "files", s.SweepExpiredFiles)
	go s.loop(s.interval, "spaces", s.SweepExpiredSpaces)
	go s.loop(s.tokenInterval, "tokens", s.SweepExpiredTokens)
	log.Println("Cleanup service started")
}

// Stop останавливает циклы и дожидается завершения текущих итераций.
func (s *CleanupService) Stop() {
	close(s.quit)
	s.wg.Wait()
	log.Println("Cleanup service stopped")
}

func (s *CleanupService) loop(interval time.Duration, kind string, sweep func(context.Context) (int, error)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := sweep(context.Background())
			if err != nil {
				log.Printf("Cleanup: %s sweep failed: %v", kind, err)
				continue
			}
			if n > 0 {
				log.Printf("Cleanup: reclaimed %d expired %s", n, kind)
			}
		case <-s.quit:
			return
		}
	}
}

// SweepExpiredFiles помечает истёкшие файлы удалёнными и зачищает их блобы.
// Ошибка удаления блоба не блокирует пометку строки: худший исход —
// осиротевший объект в хранилище, строка при этом перестаёт быть видимой.
// Конкурентный вызов при идущем проходе пропускается: проход идемпотентен,
// пропущенную работу заберёт следующий.
func (s *CleanupService) SweepExpiredFiles(ctx context.Context) (int, error) {
	if !s.fileSweepBusy.CompareAndSwap(false, true) {
		log.Println("Cleanup: files sweep already running, skipping")
		return 0, nil
	}
	defer s.fileSweepBusy.Store(false)

	expired, err := s.files.ListExpired(ctx)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range expired {
		f := &expired[i]

		if f.HasBlob() {
			if err := s.blob.DeleteObject(*f.S3Key); err != nil {
				log.Printf("Warning: failed to delete expired file %d from storage: %v", f.ID, err)
				metrics.SweepErrorsTotal.WithLabelValues("files").Inc()
			}
		}

		if err := s.files.MarkDeleted(ctx, f.ID); err != nil {
			log.Printf("Warning: failed to mark expired file %d as deleted: %v", f.ID, err)
			metrics.SweepErrorsTotal.WithLabelValues("files").Inc()
			continue
		}

		reclaimed++
		metrics.SweepReclaimedTotal.WithLabelValues("files").Inc()
	}

	return reclaimed, nil
}

// SweepExpiredSpaces помечает истёкшие пространства удалёнными вместе с их
// файлами. Блобы файлов зачищаются здесь же: после пометки пространства
// файловый цикл их уже не увидит.
func (s *CleanupService) SweepExpiredSpaces(ctx context.Context) (int, error) {
	if !s.spaceSweepBusy.CompareAndSwap(false, true) {
		log.Println("Cleanup: spaces sweep already running, skipping")
		return 0, nil
	}
	defer s.spaceSweepBusy.Store(false)

	expired, err := s.spaces.ListExpired(ctx)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range expired {
		sp := &expired[i]

		files, err := s.files.ListUndeletedBySpace(ctx, sp.ID)
		if err != nil {
			log.Printf("Warning: failed to list files of expired space %d: %v", sp.ID, err)
			metrics.SweepErrorsTotal.WithLabelValues("spaces").Inc()
			continue
		}

		for j := range files {
			if !files[j].HasBlob() {
				continue
			}
			if err := s.blob.DeleteObject(*files[j].S3Key); err != nil {
				log.Printf("Warning: failed to delete file %d of expired space %d from storage: %v",
					files[j].ID, sp.ID, err)
				metrics.SweepErrorsTotal.WithLabelValues("spaces").Inc()
			}
		}

		if err := s.spaces.MarkDeletedCascade(ctx, sp.ID); err != nil {
			log.Printf("Warning: failed to mark expired space %d as deleted: %v", sp.ID, err)
			metrics.SweepErrorsTotal.WithLabelValues("spaces").Inc()
			continue
		}

		reclaimed++
		metrics.SweepReclaimedTotal.WithLabelValues("spaces").Inc()
	}

	return reclaimed, nil
}

// SweepExpiredTokens физически удаляет истёкшие токены сессий. В отличие от
// пространств и файлов токены не имеют мягкого удаления: строка либо есть,
// либо её нет.
func (s *CleanupService) SweepExpiredTokens(ctx context.Context) (int, error) {
	if !s.tokenSweepBusy.CompareAndSwap(false, true) {
		log.Println("Cleanup: tokens sweep already running, skipping")
		return 0, nil
	}
	defer s.tokenSweepBusy.Store(false)

	n, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SweepReclaimedTotal.WithLabelValues("tokens").Add(float64(n))
	}
	return int(n), nil
}
