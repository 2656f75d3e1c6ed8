package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sharezone/internal/config"
	"sharezone/internal/handler"
	"sharezone/internal/metrics"
	"sharezone/internal/repository"
	"sharezone/internal/service"
	"sharezone/internal/service/s3"
)

func connectWithRetry(cfg *config.DatabaseConfig, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.GetDSN()

	// Сначала подключаемся к системной базе postgres, которая всегда существует
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Name)
		_, err = pgDB.Exec("CREATE DATABASE " + cfg.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(&appConfig.Database, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Инициализация репозиториев
	spaceRepo := repository.NewSpaceRepository(db)
	fileRepo := repository.NewFileRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	// Инициализация сервисов
	authService := service.NewAuthService(tokenRepo, appConfig.Auth.SystemPassword, appConfig.Auth.TokenExpiresDays)
	spaceService := service.NewSpaceService(spaceRepo, appConfig.Storage.SpaceExpiresHours, appConfig.Storage.MaxExtendDays)
	fileService := service.NewFileService(
		fileRepo,
		spaceRepo,
		s3Client,
		appConfig.Storage.FileExpiresHours,
		appConfig.Storage.MaxExtendDays,
		appConfig.Storage.MaxFileSizeBytes,
		config.ExtensionSet(appConfig.Storage.DangerousExtensions),
		config.ExtensionSet(appConfig.Storage.ImageExtensions),
	)
	cleanupService := service.NewCleanupService(
		spaceRepo,
		fileRepo,
		tokenRepo,
		s3Client,
		appConfig.Storage.CleanupIntervalMinutes,
		appConfig.Storage.TokenCleanupIntervalHours,
	)

	// Инициализация хендлеров
	authHandler := handler.NewAuthHandler(authService, appConfig.Auth.TokenExpiresDays)
	spaceHandler := handler.NewSpaceHandler(spaceService, appConfig.Auth.SpaceCookieDays)
	fileHandler := handler.NewFileHandler(fileService, spaceService, appConfig.Storage.MaxFileSizeBytes)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	// HTTP маршруты
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/verify", authHandler.Verify)
		})

		// Всё остальное доступно только после системного входа
		r.Group(func(r chi.Router) {
			r.Use(authHandler.RequireAuth)

			r.Route("/spaces", func(r chi.Router) {
				r.Get("/", spaceHandler.ListVisited)
				r.Post("/", spaceHandler.CreateSpace)
				r.Post("/enter", spaceHandler.EnterSpace)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", spaceHandler.GetSpace)
					r.Delete("/", spaceHandler.DeleteSpace)
					r.Put("/access", spaceHandler.RecordAccess)
					r.Post("/extend", spaceHandler.ExtendSpace)
					r.Get("/files", fileHandler.ListFiles)
					r.Post("/files", fileHandler.CreateFile)
				})
			})

			r.Route("/files/{id}", func(r chi.Router) {
				r.Get("/", fileHandler.GetFile)
				r.Put("/", fileHandler.UpdateFile)
				r.Delete("/", fileHandler.DeleteFile)
				r.Get("/content", fileHandler.GetContent)
				r.Get("/download", fileHandler.Download)
				r.Post("/extend", fileHandler.ExtendFile)
			})
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем фоновую очистку истёкших данных
	cleanupService.Start()

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	cleanupService.Stop()

	if err := db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}

	log.Println("Server exited properly")
}
