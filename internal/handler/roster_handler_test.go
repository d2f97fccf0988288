package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
)

func TestRosterHandler_Snapshot(t *testing.T) {
	r := newRosterApp(t)

	resp := r.do(t, http.MethodGet, "/api/v1/roster", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var snapshot dto.RosterSnapshot
	decodeEnvelope(t, resp, &snapshot)
	require.Equal(t, "local", snapshot.Store)
	require.Len(t, snapshot.Students, 15)
	require.Len(t, snapshot.Modules, 4)
	require.Len(t, snapshot.Projects, 9)
	require.False(t, snapshot.GeneratedAt.IsZero())
}

func TestRosterHandler_WebsocketRequiresUpgrade(t *testing.T) {
	r := newRosterApp(t)

	resp := r.do(t, http.MethodGet, "/api/v1/roster/ws", nil)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
