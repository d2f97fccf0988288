package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/config"
	"github.com/noah-isme/trombinoscope-api/internal/database"
	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/export"
	"github.com/noah-isme/trombinoscope-api/internal/handler"
	"github.com/noah-isme/trombinoscope-api/internal/middleware"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/router"
	"github.com/noah-isme/trombinoscope-api/internal/service"
	b2store "github.com/noah-isme/trombinoscope-api/pkg/b2"
	cloud "github.com/noah-isme/trombinoscope-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, roster changes stay local")
		} else {
			defer natsConn.Drain()
		}
	}

	store, err := database.OpenStore(cfg, redisClient, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	validate := dto.NewValidator()

	events := service.NewRosterEvents(store, natsConn, cfg.EventsChannel, logger)
	studentService := service.NewStudentService(store, events, validate, logger)
	moduleService := service.NewModuleService(store, events, validate, logger)
	projectService := service.NewProjectService(store, events, validate, logger)
	statsService := service.NewStatsService(store, redisClient, cfg.RedisPrefix, cfg.StatsCacheTTL, logger)
	seedService := service.NewSeedService(store, events, cfg.SeedEnabled, cfg.SeedToken, logger)
	exportService := service.NewExportService(store, &export.HTTPFetcher{Timeout: cfg.PhotoFetchTimeout}, logger)
	rosterService := service.NewRosterService(store, events)

	storage, storageName := photoStorage(ctx, cfg, logger)
	photoService := service.NewPhotoService(studentService, storage, storageName, cfg.PhotoMaxSizeMB, logger)

	events.AddListener(func(models.ChangeEvent) {
		statsService.Invalidate(context.Background())
	})
	events.Start(ctx)

	if cfg.SeedOnEmptyStore {
		if _, err := seedService.SeedIfEmpty(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to seed empty store")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.PhotoMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		StoreName:      store.Name(),
		StudentHandler: handler.NewStudentHandler(studentService, photoService, logger),
		ModuleHandler:  handler.NewModuleHandler(moduleService, logger),
		ProjectHandler: handler.NewProjectHandler(projectService, logger),
		StatsHandler:   handler.NewStatsHandler(statsService, logger),
		ExportHandler:  handler.NewExportHandler(exportService, logger),
		RosterHandler:  handler.NewRosterHandler(rosterService, logger, cfg.StreamKeepAlive),
		SeedHandler:    handler.NewSeedHandler(seedService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

// photoStorage picks the first configured remote destination and falls back
// to inline data URIs.
func photoStorage(ctx context.Context, cfg config.Config, logger zerolog.Logger) (service.FileStorage, string) {
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err == nil {
			return uploader, "cloudinary"
		}
		logger.Warn().Err(err).Msg("cloudinary unavailable, trying next photo storage")
	}

	if cfg.B2Bucket != "" {
		bucket, err := b2store.New(ctx, b2store.Config{
			AccountID:      cfg.B2AccountID,
			ApplicationKey: cfg.B2ApplicationKey,
			Bucket:         cfg.B2Bucket,
			Prefix:         "students",
		}, logger)
		if err == nil {
			return bucket, "b2"
		}
		logger.Warn().Err(err).Msg("b2 unavailable, storing photos inline")
	}

	return service.DataURIStorage{}, "inline"
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
