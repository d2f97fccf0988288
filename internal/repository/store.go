package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// ErrNotFound indicates the requested record does not exist in the backend.
var ErrNotFound = errors.New("record not found")

// ErrWatchUnsupported is returned by Watch on backends without change feeds.
var ErrWatchUnsupported = errors.New("backend does not support watching")

// StudentRepository persists students.
type StudentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	Get(ctx context.Context, id string) (models.Student, error)
	Save(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// ModuleRepository persists modules.
type ModuleRepository interface {
	List(ctx context.Context) ([]models.Module, error)
	Get(ctx context.Context, id string) (models.Module, error)
	Save(ctx context.Context, module *models.Module) error
	Delete(ctx context.Context, id string) error
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	List(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id string) (models.Project, error)
	Save(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
}

// Store is one mounted persistence backend.
type Store interface {
	Name() string
	Students() StudentRepository
	Modules() ModuleRepository
	Projects() ProjectRepository
	Close() error
}

// Watcher is implemented by backends that can observe writes made by other processes.
type Watcher interface {
	Watch(ctx context.Context) (<-chan models.ChangeEvent, error)
}

// BulkSaver is implemented by backends that insert a whole roster in batches.
// Record ids may be reassigned; project references are rewritten to match.
type BulkSaver interface {
	SaveRoster(ctx context.Context, roster *models.Roster) error
}

// LoadRoster reads every collection of the store.
func LoadRoster(ctx context.Context, store Store) (models.Roster, error) {
	students, err := store.Students().List(ctx)
	if err != nil {
		return models.Roster{}, err
	}
	modules, err := store.Modules().List(ctx)
	if err != nil {
		return models.Roster{}, err
	}
	projects, err := store.Projects().List(ctx)
	if err != nil {
		return models.Roster{}, err
	}
	return models.Roster{Students: students, Modules: modules, Projects: projects}, nil
}

var lastTimestampID atomic.Int64

// NewTimestampID returns a millisecond timestamp id, bumped to stay unique within the process.
func NewTimestampID() string {
	for {
		now := time.Now().UnixMilli()
		last := lastTimestampID.Load()
		if now <= last {
			now = last + 1
		}
		if lastTimestampID.CompareAndSwap(last, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}

func stampProject(project *models.Project, now time.Time) {
	project.Normalize()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
}

func sortStudents(students []models.Student) {
	sort.SliceStable(students, func(i, j int) bool {
		left := strings.ToLower(students[i].LastName)
		right := strings.ToLower(students[j].LastName)
		if left != right {
			return left < right
		}
		return strings.ToLower(students[i].FirstName) < strings.ToLower(students[j].FirstName)
	})
}

func sortModules(modules []models.Module) {
	sort.SliceStable(modules, func(i, j int) bool {
		return strings.ToLower(modules[i].Name) < strings.ToLower(modules[j].Name)
	})
}

func sortProjects(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
}
