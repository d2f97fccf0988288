package performance_test

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/tests/testutil"
)

func populate(t *testing.T, app testutil.App, students int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < students; i++ {
		student := models.Student{
			ID:            fmt.Sprintf("perf-%d", i),
			FirstName:     fmt.Sprintf("Prénom%d", i),
			LastName:      fmt.Sprintf("Nom%d", i),
			StudentNumber: fmt.Sprintf("EGE2025%03d", i),
			AbsenceCount:  models.AbsenceCount(i % 4),
		}
		require.NoError(t, app.Store.Students().Save(ctx, &student))
	}
}

func p95(t *testing.T, app testutil.App, path string, runs int) time.Duration {
	t.Helper()
	durations := make([]time.Duration, 0, runs)

	for i := 0; i < runs; i++ {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		start := time.Now()
		resp, err := app.Fiber.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	return percentile(durations, 0.95)
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

func TestRosterReadsP95LatencyBelow250ms(t *testing.T) {
	if testing.Short() {
		t.Skip("latency budget check")
	}
	app := testutil.NewSQLiteApp(t)
	populate(t, app, 200)

	for _, path := range []string{"/api/v1/students", "/api/v1/stats/dashboard", "/api/v1/roster"} {
		require.LessOrEqual(t, p95(t, app, path, 40), 250*time.Millisecond, path)
	}
}

func TestWorkbookExportBelow2s(t *testing.T) {
	if testing.Short() {
		t.Skip("latency budget check")
	}
	app := testutil.NewSQLiteApp(t)
	populate(t, app, 200)

	require.LessOrEqual(t, p95(t, app, "/api/v1/export/xlsx", 5), 2*time.Second)
}
