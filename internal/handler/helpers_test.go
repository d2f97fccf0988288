package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/handler"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
	"github.com/noah-isme/trombinoscope-api/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Details json.RawMessage `json:"details"`
}

type rosterApp struct {
	app   *fiber.App
	store repository.Store
}

// newRosterApp mounts every roster handler over a seeded bolt store.
func newRosterApp(t *testing.T) rosterApp {
	t.Helper()

	logger := zerolog.New(io.Discard)
	bolt, err := repository.OpenBoltStore(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })
	store := repository.Instrument(bolt)

	events := service.NewRosterEvents(store, nil, "", logger)
	validate := dto.NewValidator()

	seeder := service.NewSeedService(store, events, true, "secret", logger)
	_, err = seeder.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	students := service.NewStudentService(store, events, validate, logger)
	photos := service.NewPhotoService(students, nil, "", 1, logger)

	app := fiber.New()
	api := app.Group("/api/v1")

	handler.NewStudentHandler(students, photos, logger).Register(api.Group("/students"))
	handler.NewModuleHandler(service.NewModuleService(store, events, validate, logger), logger).Register(api.Group("/modules"))
	handler.NewProjectHandler(service.NewProjectService(store, events, validate, logger), logger).Register(api.Group("/projects"))
	handler.NewStatsHandler(service.NewStatsService(store, nil, "", 0, logger), logger).Register(api.Group("/stats"))
	handler.NewExportHandler(service.NewExportService(store, nil, logger), logger).Register(api.Group("/export"))
	handler.NewRosterHandler(service.NewRosterService(store, events), logger, 0).Register(api.Group("/roster"))

	return rosterApp{app: app, store: store}
}

func (r rosterApp) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	var body envelope
	decodeResponse(t, resp, &body)
	if data != nil && len(body.Data) > 0 {
		require.NoError(t, json.Unmarshal(body.Data, data))
	}
	return body
}

func fieldNames(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var details []handler.FieldError
	require.NoError(t, json.Unmarshal(raw, &details))
	names := make([]string, 0, len(details))
	for _, detail := range details {
		names = append(names, detail.Field)
	}
	return names
}
