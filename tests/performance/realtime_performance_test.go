package performance_test

import (
	"bufio"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/tests/testutil"
)

func TestRosterWebsocketP95Under250ms(t *testing.T) {
	if testing.Short() {
		t.Skip("latency budget check")
	}
	app := testutil.NewSQLiteApp(t)
	baseURL := app.Serve(t)

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/roster/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	clients := 100
	durations := make([]time.Duration, 0, clients)

	for i := 0; i < clients; i++ {
		start := time.Now()
		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		require.NoError(t, err)
		if resp != nil {
			_ = resp.Body.Close()
		}

		_, _, err = conn.ReadMessage()
		require.NoError(t, err)
		_ = conn.Close()

		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	require.LessOrEqual(t, percentile(durations, 0.95), 250*time.Millisecond)
}

func TestRosterStreamP95Under300ms(t *testing.T) {
	if testing.Short() {
		t.Skip("latency budget check")
	}
	app := testutil.NewSQLiteApp(t)
	baseURL := app.Serve(t)

	client := &http.Client{Timeout: 5 * time.Second}
	clients := 50
	durations := make([]time.Duration, 0, clients)

	for i := 0; i < clients; i++ {
		start := time.Now()
		resp, err := client.Get(baseURL + "/api/v1/roster/stream")
		require.NoError(t, err)

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data:") {
				durations = append(durations, time.Since(start))
				break
			}
		}
		resp.Body.Close()
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	require.LessOrEqual(t, percentile(durations, 0.95), 300*time.Millisecond)
}
