package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/lawncare-backend/internal/config"
	"github.com/ignatzorin/lawncare-backend/internal/db"
	"github.com/ignatzorin/lawncare-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/lawncare-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/lawncare-backend/internal/http/router"
	"github.com/ignatzorin/lawncare-backend/internal/logger"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
	"github.com/ignatzorin/lawncare-backend/internal/service"
	"github.com/ignatzorin/lawncare-backend/internal/storage"
	"github.com/ignatzorin/lawncare-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера.
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
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

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	addressRepo := repository.NewAddressRepository(dbConn)
	bookingRepo := repository.NewBookingRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	photoRepo := repository.NewPhotoRepository(dbConn)
	timerRepo := repository.NewTimerRepository(dbConn)
	suggestionRepo := repository.NewSuggestionRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты и уведомления.
	hub := ws.NewHub()
	go hub.Run()
	notificationService := service.NewNotificationService(notificationRepo, hub)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	addressService := service.NewAddressService(addressRepo, bookingRepo, notificationService, cfg.PriceTolerancePct)
	bookingService := service.NewBookingService(
		bookingRepo, addressRepo, ledgerRepo, photoRepo, timerRepo, userRepo,
		notificationService, cfg.MinPhotosGeneral, cfg.MinPhotosProbation,
	)
	disputeService := service.NewDisputeService(disputeRepo, bookingRepo, ledgerRepo, timerRepo, notificationService)
	suggestionService := service.NewSuggestionService(suggestionRepo, bookingRepo, ledgerRepo, userRepo, addressRepo, notificationService)
	ledgerService := service.NewLedgerService(ledgerRepo)
	photoService := service.NewPhotoService(photoRepo, bookingRepo, photoStorage)

	// Планировщик авторазблокировки выплат: таймеры хранятся в БД и
	// переживают рестарт процесса.
	scheduler := service.NewSchedulerService(timerRepo, bookingService, cfg.SchedulerInterval)
	goroutine.SafeGoWithContext(ctx, scheduler.Run)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	addressHandler := httpHandlers.NewAddressHandler(addressService)
	bookingHandler := httpHandlers.NewBookingHandler(bookingService, suggestionService)
	contractorHandler := httpHandlers.NewContractorHandler(authService, bookingService, suggestionService, ledgerService)
	adminHandler := httpHandlers.NewAdminHandler(addressService, authService, disputeService, ledgerService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService, bookingService)
	photoHandler := httpHandlers.NewPhotoHandler(photoService, photoStorage)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		addressHandler,
		bookingHandler,
		contractorHandler,
		adminHandler,
		disputeHandler,
		photoHandler,
		notificationHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

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
