package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskdom/backend/internal/config"
	"github.com/taskdom/backend/internal/db"
	"github.com/taskdom/backend/internal/goroutine"
	httpHandlers "github.com/taskdom/backend/internal/http/handlers"
	httpRouter "github.com/taskdom/backend/internal/http/router"
	"github.com/taskdom/backend/internal/logger"
	"github.com/taskdom/backend/internal/repository"
	"github.com/taskdom/backend/internal/service"
	"github.com/taskdom/backend/internal/storage"
	"github.com/taskdom/backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	taskRepo := repository.NewTaskRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)

	// Периодическая чистка протухших сессий.
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if deleted, err := userRepo.DeleteExpiredSessions(ctx); err != nil {
					logger.Log.WithError(err).Warn("не удалось удалить протухшие сессии")
				} else if deleted > 0 {
					logger.Log.WithField("deleted", deleted).Debug("удалены протухшие сессии")
				}
			}
		}
	})

	// Вебсокеты.
	notificationService := service.NewNotificationService(notificationRepo)
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	taskService := service.NewTaskService(taskRepo, hub)
	bidService := service.NewBidService(bidRepo, taskRepo, hub)
	paymentService := service.NewPaymentService(paymentRepo, hub)
	lifecycleService := service.NewLifecycleService(bidService, taskService, paymentService)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	taskHandler := httpHandlers.NewTaskHandler(taskService, lifecycleService)
	bidHandler := httpHandlers.NewBidHandler(bidService, lifecycleService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	mediaHandler := httpHandlers.NewMediaHandler(mediaRepo, photoStorage)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, taskHandler, bidHandler, paymentHandler, notificationHandler, mediaHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
