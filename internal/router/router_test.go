package router_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/config"
	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/handler"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
	"github.com/noah-isme/trombinoscope-api/internal/router"
	"github.com/noah-isme/trombinoscope-api/internal/service"
)

func newApp(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()

	logger := zerolog.New(io.Discard)
	bolt, err := repository.OpenBoltStore(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })
	store := repository.Instrument(bolt)

	events := service.NewRosterEvents(store, nil, "", logger)
	seeder := service.NewSeedService(store, events, cfg.SeedEnabled, cfg.SeedToken, logger)
	_, err = seeder.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	students := service.NewStudentService(store, events, dto.NewValidator(), logger)

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		StoreName:      store.Name(),
		StudentHandler: handler.NewStudentHandler(students, nil, logger),
		ExportHandler:  handler.NewExportHandler(service.NewExportService(store, nil, logger), logger),
		SeedHandler:    handler.NewSeedHandler(seeder, logger),
	})
	return app
}

func request(t *testing.T, app *fiber.App, method, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRegisterServesHealthAndMetrics(t *testing.T) {
	app := newApp(t, config.Config{AppName: "Trombinoscope API", AppEnv: "test"})

	resp := request(t, app, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Trombinoscope API", resp.Header.Get("X-Application"))

	resp = request(t, app, http.MethodGet, "/metrics", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterGuardsWritesWhenSecretConfigured(t *testing.T) {
	secret := "router-secret"
	app := newApp(t, config.Config{JWTSecret: secret})

	resp := request(t, app, http.MethodGet, "/api/v1/students/demo-1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = request(t, app, http.MethodDelete, "/api/v1/students/demo-1", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "prof@example.org", "role": "admin"}).SignedString([]byte(secret))
	require.NoError(t, err)
	resp = request(t, app, http.MethodDelete, "/api/v1/students/demo-1", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterRateLimitsExports(t *testing.T) {
	app := newApp(t, config.Config{ExportRateLimit: 1})

	resp := request(t, app, http.MethodGet, "/api/v1/export/xlsx", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = request(t, app, http.MethodGet, "/api/v1/export/xlsx", "")
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRegisterSeedRoutesNeedToken(t *testing.T) {
	app := newApp(t, config.Config{SeedEnabled: true, SeedToken: "seed-me"})

	resp := request(t, app, http.MethodPost, "/api/v1/admin/reset", "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", nil)
	req.Header.Set(handler.SeedTokenHeader, "seed-me")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterAdminRoutesNeedAdminTokenWhenJWTEnabled(t *testing.T) {
	secret := "router-secret"
	app := newApp(t, config.Config{JWTSecret: secret, SeedEnabled: true, SeedToken: "seed-me"})

	reset := func(token string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", nil)
		req.Header.Set(handler.SeedTokenHeader, "seed-me")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	require.Equal(t, fiber.StatusUnauthorized, reset("").StatusCode)

	teacher, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "prof@example.org", "role": "teacher"}).SignedString([]byte(secret))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, reset(teacher).StatusCode)

	admin, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "scolarite@example.org", "roles": []string{"Admin"}}).SignedString([]byte(secret))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, reset(admin).StatusCode)
}
