package handler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/handler"
	"github.com/noah-isme/trombinoscope-api/internal/seed"
	"github.com/noah-isme/trombinoscope-api/internal/service"
)

type mockSeedService struct {
	authErr     error
	err         error
	result      dto.SeedResult
	lastToken   string
	lastPayload []byte
	calls       []string
}

func (m *mockSeedService) Authorize(token string) error {
	m.lastToken = token
	return m.authErr
}

func (m *mockSeedService) SeedIfEmpty(_ context.Context) (dto.SeedResult, error) {
	m.calls = append(m.calls, "seed")
	return m.result, m.err
}

func (m *mockSeedService) Reset(_ context.Context) (dto.SeedResult, error) {
	m.calls = append(m.calls, "reset")
	return m.result, m.err
}

func (m *mockSeedService) Import(_ context.Context, payload []byte) (dto.SeedResult, error) {
	m.calls = append(m.calls, "import")
	m.lastPayload = payload
	return m.result, m.err
}

func newSeedApp(svc service.SeedService) *fiber.App {
	app := fiber.New()
	handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/admin"))
	return app
}

func TestSeedHandler_Operations(t *testing.T) {
	cases := []struct {
		path    string
		call    string
		message string
		result  dto.SeedResult
	}{
		{path: "/api/v1/admin/seed", call: "seed", message: "roster seeded", result: dto.SeedResult{Store: "local", Seeded: true, Students: 15}},
		{path: "/api/v1/admin/seed", call: "seed", message: "store already populated", result: dto.SeedResult{Store: "local"}},
		{path: "/api/v1/admin/reset", call: "reset", message: "roster reset", result: dto.SeedResult{Store: "local", Seeded: true}},
		{path: "/api/v1/admin/import", call: "import", message: "roster imported", result: dto.SeedResult{Store: "sql", Seeded: true}},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			svc := &mockSeedService{result: tc.result}
			req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewReader([]byte(`{"students":[]}`)))
			req.Header.Set(handler.SeedTokenHeader, "secret")

			resp, err := newSeedApp(svc).Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			var result dto.SeedResult
			body := decodeEnvelope(t, resp, &result)
			require.Equal(t, tc.message, body.Message)
			require.Equal(t, tc.result, result)
			require.Equal(t, "secret", svc.lastToken)
			require.Equal(t, []string{tc.call}, svc.calls)
		})
	}
}

func TestSeedHandler_ImportForwardsBody(t *testing.T) {
	svc := &mockSeedService{}
	payload := []byte(`{"students":[],"modules":[],"projects":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", bytes.NewReader(payload))
	req.Header.Set(handler.SeedTokenHeader, "secret")

	resp, err := newSeedApp(svc).Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, string(payload), string(svc.lastPayload))
}

func TestSeedHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		authErr    error
		err        error
		statusCode int
		message    string
	}{
		{name: "disabled", authErr: service.ErrSeedDisabled, statusCode: fiber.StatusForbidden, message: "seeding disabled"},
		{name: "unauthorized", authErr: service.ErrSeedUnauthorized, statusCode: fiber.StatusForbidden, message: "invalid token"},
		{name: "invalid roster", err: fmt.Errorf("%w: missing students", seed.ErrInvalidRoster), statusCode: fiber.StatusBadRequest, message: "invalid roster document"},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError, message: "seed operation failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockSeedService{authErr: tc.authErr, err: tc.err}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", bytes.NewReader([]byte("{}")))
			req.Header.Set(handler.SeedTokenHeader, "secret")

			resp, err := newSeedApp(svc).Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			body := decodeEnvelope(t, resp, nil)
			require.False(t, body.Success)
			require.Equal(t, tc.message, body.Message)
			if tc.authErr != nil {
				require.Empty(t, svc.calls)
			}
		})
	}
}
