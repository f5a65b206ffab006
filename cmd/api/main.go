package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/maintenance-service/internal/api/http"
	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/persistence"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/storage"
	"github.com/spec-kit/maintenance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redisConn.Close()

	attachments, err := storage.NewMinioStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}

	docketLocation, err := cfg.Docket.Location()
	if err != nil {
		logger.Fatal("invalid docket timezone", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewRedisDispatcher(events.NewInMemoryDispatcher(), redisConn.Client, cfg.Redis.EventsChannel, logger)

	pool := pg.PoolHandle()
	vendorRepo := repository.NewVendorRepository(pool)
	slaResolver := service.NewSLAResolver(repository.NewSlaCategoryRepository(pool), redisConn.Client, cfg.Redis.SLACacheTTL(), logger)

	maintenanceService := service.NewMaintenanceService(service.MaintenanceDependencies{
		RequestRepo:      repository.NewMaintenanceRepository(pool),
		HistoryRepo:      repository.NewDocketHistoryRepository(pool),
		AssetRepo:        repository.NewAssetRepository(pool),
		VendorRepo:       vendorRepo,
		OrganizationRepo: repository.NewOrganizationRepository(pool),
		SLA:              slaResolver,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Metrics:          metrics,
		DocketLocation:   docketLocation,
	})

	notificationService := service.NewNotificationService(dispatcher, vendorRepo, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)
	worker.StartEventLogWorker(ctx, redisConn.Client, cfg.Redis.EventsChannel, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Storage.MaxUploadBytes()) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
		handlers.DependencyCheck{Name: "postgres", Target: pg},
		handlers.DependencyCheck{Name: "redis", Target: redisConn, Optional: true},
		handlers.DependencyCheck{Name: "storage", Target: attachments, Optional: true},
	)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Maintenance:    handlers.NewMaintenanceHandler(maintenanceService),
		Attachments:    handlers.NewAttachmentHandler(attachments, cfg.Storage.MaxUploadBytes()),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
