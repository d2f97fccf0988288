// Package testutil assembles the full roster API over an in-memory sqlite
// store for the contract, integration and performance suites.
package testutil

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/config"
	"github.com/noah-isme/trombinoscope-api/internal/database"
	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/handler"
	"github.com/noah-isme/trombinoscope-api/internal/middleware"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
	"github.com/noah-isme/trombinoscope-api/internal/router"
	"github.com/noah-isme/trombinoscope-api/internal/service"
)

// SeedToken is accepted by the admin routes of the test app.
const SeedToken = "test-seed-token"

// App is a fully wired roster API.
type App struct {
	Fiber  *fiber.App
	Store  repository.Store
	Events service.RosterEvents
}

// NewSQLiteApp mounts a seeded sql store named after the running test.
func NewSQLiteApp(t testing.TB) App {
	t.Helper()

	dsn := "file:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := database.ConnectSQLite(dsn)
	require.NoError(t, err)
	sqlStore, err := repository.NewSQLStore(db)
	require.NoError(t, err)
	store := repository.Instrument(sqlStore)
	t.Cleanup(func() { _ = store.Close() })

	return newApp(t, store)
}

func newApp(t testing.TB, store repository.Store) App {
	logger := zerolog.New(io.Discard)
	cfg := config.Config{
		AppName:         "Trombinoscope API",
		AppEnv:          "test",
		SeedEnabled:     true,
		SeedToken:       SeedToken,
		ExportRateLimit: 1000,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	validate := dto.NewValidator()
	events := service.NewRosterEvents(store, nil, "", logger)
	students := service.NewStudentService(store, events, validate, logger)
	stats := service.NewStatsService(store, nil, "", 0, logger)
	seeder := service.NewSeedService(store, events, cfg.SeedEnabled, cfg.SeedToken, logger)

	events.AddListener(func(models.ChangeEvent) { stats.Invalidate(context.Background()) })
	events.Start(ctx)

	_, err := seeder.SeedIfEmpty(ctx)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	middleware.Register(app, middleware.Config{Logger: &logger, DisableAccessLog: true})
	router.Register(app, cfg, router.Dependencies{
		StoreName:      store.Name(),
		StudentHandler: handler.NewStudentHandler(students, service.NewPhotoService(students, nil, "", 2, logger), logger),
		ModuleHandler:  handler.NewModuleHandler(service.NewModuleService(store, events, validate, logger), logger),
		ProjectHandler: handler.NewProjectHandler(service.NewProjectService(store, events, validate, logger), logger),
		StatsHandler:   handler.NewStatsHandler(stats, logger),
		ExportHandler:  handler.NewExportHandler(service.NewExportService(store, nil, logger), logger),
		RosterHandler:  handler.NewRosterHandler(service.NewRosterService(store, events), logger, 0),
		SeedHandler:    handler.NewSeedHandler(seeder, logger),
	})

	return App{Fiber: app, Store: store, Events: events}
}

// Do sends a request with an optional raw JSON body.
func (a App) Do(t testing.TB, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.Fiber.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// Serve starts the app on a loopback listener and returns its base URL.
// The listener is shut down when the test ends.
func (a App) Serve(t testing.TB) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := a.Fiber.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		_ = a.Fiber.ShutdownWithTimeout(time.Second)
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	})
	return "http://" + listener.Addr().String()
}
