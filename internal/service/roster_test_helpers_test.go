package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	store, err := repository.OpenBoltStore(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return repository.Instrument(store)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recordingEvents) Publish(_ context.Context, event models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) Subscribe() (<-chan models.ChangeEvent, func()) {
	ch := make(chan models.ChangeEvent)
	return ch, func() {}
}

func (r *recordingEvents) AddListener(func(models.ChangeEvent)) {}

func (r *recordingEvents) Start(context.Context) {}

func (r *recordingEvents) last() models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return models.ChangeEvent{}
	}
	return r.events[len(r.events)-1]
}

func (r *recordingEvents) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func ptrFloat(v float64) *float64 { return &v }

func ptrString(v string) *string { return &v }
