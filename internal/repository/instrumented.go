package repository

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/observability"
)

// Instrument wraps a store so every call is counted and timed.
func Instrument(store Store) Store {
	if _, ok := store.(*instrumentedStore); ok {
		return store
	}
	return &instrumentedStore{inner: store}
}

// Unwrap returns the backend behind an instrumented store.
func Unwrap(store Store) Store {
	if wrapped, ok := store.(*instrumentedStore); ok {
		return wrapped.inner
	}
	return store
}

type instrumentedStore struct {
	inner Store
}

func (s *instrumentedStore) Name() string { return s.inner.Name() }

func (s *instrumentedStore) Close() error { return s.inner.Close() }

func (s *instrumentedStore) Students() StudentRepository {
	return instrumentedStudents{inner: s.inner.Students(), backend: s.inner.Name()}
}

func (s *instrumentedStore) Modules() ModuleRepository {
	return instrumentedModules{inner: s.inner.Modules(), backend: s.inner.Name()}
}

func (s *instrumentedStore) Projects() ProjectRepository {
	return instrumentedProjects{inner: s.inner.Projects(), backend: s.inner.Name()}
}

// Watch forwards to the backend when it supports watching.
func (s *instrumentedStore) Watch(ctx context.Context) (<-chan models.ChangeEvent, error) {
	watcher, ok := s.inner.(Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return watcher.Watch(ctx)
}

func observe(backend, collection, operation string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	observability.StoreOperations().WithLabelValues(backend, collection, operation, outcome).Inc()
	observability.StoreLatency().WithLabelValues(backend, collection, operation).Observe(time.Since(start).Seconds())
}

type instrumentedStudents struct {
	inner   StudentRepository
	backend string
}

func (r instrumentedStudents) List(ctx context.Context) (students []models.Student, err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionStudents, "list", start, err) }(time.Now())
	return r.inner.List(ctx)
}

func (r instrumentedStudents) Get(ctx context.Context, id string) (student models.Student, err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionStudents, "get", start, err) }(time.Now())
	return r.inner.Get(ctx, id)
}

func (r instrumentedStudents) Save(ctx context.Context, student *models.Student) (err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionStudents, "save", start, err) }(time.Now())
	return r.inner.Save(ctx, student)
}

func (r instrumentedStudents) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionStudents, "delete", start, err) }(time.Now())
	return r.inner.Delete(ctx, id)
}

type instrumentedModules struct {
	inner   ModuleRepository
	backend string
}

func (r instrumentedModules) List(ctx context.Context) (modules []models.Module, err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionModules, "list", start, err) }(time.Now())
	return r.inner.List(ctx)
}

func (r instrumentedModules) Get(ctx context.Context, id string) (module models.Module, err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionModules, "get", start, err) }(time.Now())
	return r.inner.Get(ctx, id)
}

func (r instrumentedModules) Save(ctx context.Context, module *models.Module) (err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionModules, "save", start, err) }(time.Now())
	return r.inner.Save(ctx, module)
}

func (r instrumentedModules) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionModules, "delete", start, err) }(time.Now())
	return r.inner.Delete(ctx, id)
}

type instrumentedProjects struct {
	inner   ProjectRepository
	backend string
}

func (r instrumentedProjects) List(ctx context.Context) (projects []models.Project, err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionProjects, "list", start, err) }(time.Now())
	return r.inner.List(ctx)
}

func (r instrumentedProjects) Get(ctx context.Context, id string) (project models.Project, err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionProjects, "get", start, err) }(time.Now())
	return r.inner.Get(ctx, id)
}

func (r instrumentedProjects) Save(ctx context.Context, project *models.Project) (err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionProjects, "save", start, err) }(time.Now())
	return r.inner.Save(ctx, project)
}

func (r instrumentedProjects) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe(r.backend, models.CollectionProjects, "delete", start, err) }(time.Now())
	return r.inner.Delete(ctx, id)
}
