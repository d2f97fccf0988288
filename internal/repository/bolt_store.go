package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

var boltBuckets = map[string][]byte{
	models.CollectionStudents: []byte("students"),
	models.CollectionModules:  []byte("modules"),
	models.CollectionProjects: []byte("projects"),
}

// BoltStore keeps every collection in a single local bbolt file.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// OpenBoltStore opens (or creates) the file and its buckets.
func OpenBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("bolt store path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bolt buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Name implements Store.
func (s *BoltStore) Name() string { return "local" }

// Close implements Store.
func (s *BoltStore) Close() error { return s.db.Close() }

// Students implements Store.
func (s *BoltStore) Students() StudentRepository { return boltStudents{s} }

// Modules implements Store.
func (s *BoltStore) Modules() ModuleRepository { return boltModules{s} }

// Projects implements Store.
func (s *BoltStore) Projects() ProjectRepository { return boltProjects{s} }

func boltPut[T any](s *BoltStore, collection, key string, value T) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBuckets[collection])
		if b == nil {
			return fmt.Errorf("bucket %s not found", collection)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func boltGet[T any](s *BoltStore, collection, key string) (T, error) {
	var out T
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBuckets[collection])
		if b == nil {
			return fmt.Errorf("bucket %s not found", collection)
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &out)
	})
	return out, err
}

func boltAll[T any](s *BoltStore, collection string) ([]T, error) {
	results := make([]T, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBuckets[collection])
		if b == nil {
			return fmt.Errorf("bucket %s not found", collection)
		}
		return b.ForEach(func(_, v []byte) error {
			var out T
			if err := json.Unmarshal(v, &out); err != nil {
				return err
			}
			results = append(results, out)
			return nil
		})
	})
	return results, err
}

func boltDelete(s *BoltStore, collection, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBuckets[collection])
		if b == nil {
			return fmt.Errorf("bucket %s not found", collection)
		}
		if b.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

type boltStudents struct{ s *BoltStore }

func (r boltStudents) List(ctx context.Context) ([]models.Student, error) {
	students, err := boltAll[models.Student](r.s, models.CollectionStudents)
	if err != nil {
		return nil, err
	}
	sortStudents(students)
	return students, nil
}

func (r boltStudents) Get(ctx context.Context, id string) (models.Student, error) {
	return boltGet[models.Student](r.s, models.CollectionStudents, id)
}

func (r boltStudents) Save(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = NewTimestampID()
	}
	return boltPut(r.s, models.CollectionStudents, student.ID, student)
}

func (r boltStudents) Delete(ctx context.Context, id string) error {
	return boltDelete(r.s, models.CollectionStudents, id)
}

type boltModules struct{ s *BoltStore }

func (r boltModules) List(ctx context.Context) ([]models.Module, error) {
	modules, err := boltAll[models.Module](r.s, models.CollectionModules)
	if err != nil {
		return nil, err
	}
	for i := range modules {
		modules[i].Normalize()
	}
	sortModules(modules)
	return modules, nil
}

func (r boltModules) Get(ctx context.Context, id string) (models.Module, error) {
	module, err := boltGet[models.Module](r.s, models.CollectionModules, id)
	if err != nil {
		return models.Module{}, err
	}
	module.Normalize()
	return module, nil
}

func (r boltModules) Save(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = NewTimestampID()
	}
	module.Normalize()
	return boltPut(r.s, models.CollectionModules, module.ID, module)
}

func (r boltModules) Delete(ctx context.Context, id string) error {
	return boltDelete(r.s, models.CollectionModules, id)
}

type boltProjects struct{ s *BoltStore }

func (r boltProjects) List(ctx context.Context) ([]models.Project, error) {
	projects, err := boltAll[models.Project](r.s, models.CollectionProjects)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].Normalize()
	}
	sortProjects(projects)
	return projects, nil
}

func (r boltProjects) Get(ctx context.Context, id string) (models.Project, error) {
	project, err := boltGet[models.Project](r.s, models.CollectionProjects, id)
	if err != nil {
		return models.Project{}, err
	}
	project.Normalize()
	return project, nil
}

func (r boltProjects) Save(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = NewTimestampID()
	}
	stampProject(project, r.s.now())
	return boltPut(r.s, models.CollectionProjects, project.ID, project)
}

func (r boltProjects) Delete(ctx context.Context, id string) error {
	return boltDelete(r.s, models.CollectionProjects, id)
}
