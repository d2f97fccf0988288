package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
	"github.com/noah-isme/trombinoscope-api/internal/seed"
)

func TestSeedServiceTokenGuard(t *testing.T) {
	store := newTestStore(t)

	disabled := NewSeedService(store, nil, false, "secret", testLogger())
	require.ErrorIs(t, disabled.Authorize("secret"), ErrSeedDisabled)

	svc := NewSeedService(store, nil, true, "secret", testLogger())
	require.ErrorIs(t, svc.Authorize("wrong"), ErrSeedUnauthorized)
	require.ErrorIs(t, svc.Authorize(""), ErrSeedUnauthorized)
	require.NoError(t, svc.Authorize(" secret "))

	noToken := NewSeedService(store, nil, true, "", testLogger())
	require.ErrorIs(t, noToken.Authorize(""), ErrSeedUnauthorized)
}

func TestSeedIfEmptyOnlySeedsEmptyStores(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	events := &recordingEvents{}
	svc := NewSeedService(store, events, true, "secret", testLogger())

	result, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	require.True(t, result.Seeded)
	require.Equal(t, "local", result.Store)
	require.Equal(t, 15, result.Students)
	require.Equal(t, 4, result.Modules)
	require.Equal(t, 9, result.Projects)
	require.Equal(t, models.ChangeReset, events.last().Action)

	roster, err := repository.LoadRoster(ctx, store)
	require.NoError(t, err)
	require.Len(t, roster.Students, 15)
	require.Len(t, roster.Projects, 9)

	again, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	require.False(t, again.Seeded)
	require.Equal(t, 1, events.count())
}

func TestResetRestoresTheDemoRoster(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewSeedService(store, nil, true, "secret", testLogger())

	extra := models.Student{ID: "extra", FirstName: "Extra", LastName: "Student"}
	require.NoError(t, store.Students().Save(ctx, &extra))
	_, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)

	_, err = store.Students().Get(ctx, "demo-1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	result, err := svc.Reset(ctx)
	require.NoError(t, err)
	require.True(t, result.Seeded)

	_, err = store.Students().Get(ctx, "extra")
	require.ErrorIs(t, err, repository.ErrNotFound)

	defaults, err := seed.Default()
	require.NoError(t, err)
	roster, err := repository.LoadRoster(ctx, store)
	require.NoError(t, err)
	require.Len(t, roster.Students, len(defaults.Students))
	require.Len(t, roster.Modules, len(defaults.Modules))
	require.Len(t, roster.Projects, len(defaults.Projects))
}

func TestImportValidatesAndUpserts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewSeedService(store, nil, true, "secret", testLogger())

	_, err := svc.Import(ctx, []byte(`{"students":[]}`))
	require.ErrorIs(t, err, seed.ErrInvalidRoster)

	payload := `{
		"students":[{"id":"s1","first_name":"Ana","last_name":"Albert","absence_count":-2}],
		"modules":[{"id":"m1","name":"Web"}],
		"projects":[{"id":"p1","module_id":"m1","name":"Site","deadline":"2024-06-01T00:00:00Z","student_ids":["s1"],"status":"Remis","grade":0}]
	}`
	result, err := svc.Import(ctx, []byte(payload))
	require.NoError(t, err)
	require.Equal(t, 1, result.Projects)

	project, err := store.Projects().Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, models.ProjectStatusSubmitted, project.Status)
	require.NotNil(t, project.Grade)
	require.Zero(t, *project.Grade)

	student, err := store.Students().Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, models.AbsenceCount(0), student.AbsenceCount)

	module, err := store.Modules().Get(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, models.DefaultModuleColor, module.Color)
}
