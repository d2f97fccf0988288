package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// DocumentStore keeps each record as a JSON document in Redis and publishes
// every write on a pub/sub channel so other instances can follow along.
type DocumentStore struct {
	client *redis.Client
	prefix string
	nodeID string
	logger zerolog.Logger
	now    func() time.Time
}

// NewDocumentStore builds the store. prefix namespaces every key.
func NewDocumentStore(client *redis.Client, prefix string, logger zerolog.Logger) *DocumentStore {
	if prefix == "" {
		prefix = "trombinoscope"
	}
	return &DocumentStore{
		client: client,
		prefix: prefix,
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "document_store").Logger(),
		now:    time.Now,
	}
}

// Name implements Store.
func (s *DocumentStore) Name() string { return "document" }

// Close implements Store. The redis client belongs to the caller.
func (s *DocumentStore) Close() error { return nil }

// Students implements Store.
func (s *DocumentStore) Students() StudentRepository { return docStudents{s} }

// Modules implements Store.
func (s *DocumentStore) Modules() ModuleRepository { return docModules{s} }

// Projects implements Store.
func (s *DocumentStore) Projects() ProjectRepository { return docProjects{s} }

func (s *DocumentStore) indexKey(collection string) string {
	return fmt.Sprintf("%s:%s", s.prefix, collection)
}

func (s *DocumentStore) docKey(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, collection, id)
}

func (s *DocumentStore) channel() string {
	return s.prefix + ":changes"
}

func (s *DocumentStore) put(ctx context.Context, collection, id string, doc interface{}) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(collection, id), payload, 0)
		pipe.SAdd(ctx, s.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, collection, models.ChangeSaved, id)
	return nil
}

func (s *DocumentStore) get(ctx context.Context, collection, id string, out interface{}) error {
	payload, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}

func (s *DocumentStore) all(ctx context.Context, collection string, decode func([]byte) error) error {
	ids, err := s.client.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.docKey(collection, id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		if err := decode([]byte(raw)); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentStore) remove(ctx context.Context, collection, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, s.docKey(collection, id))
		pipe.SRem(ctx, s.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return err
	}
	if removed.Val() == 0 {
		return ErrNotFound
	}
	s.publish(ctx, collection, models.ChangeDeleted, id)
	return nil
}

type documentChange struct {
	models.ChangeEvent
	Node string `json:"node"`
}

func (s *DocumentStore) publish(ctx context.Context, collection, action, id string) {
	payload, err := json.Marshal(documentChange{
		ChangeEvent: models.ChangeEvent{Collection: collection, Action: action, ID: id, Source: s.Name(), At: s.now().UTC()},
		Node:        s.nodeID,
	})
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.channel(), payload).Err(); err != nil {
		s.logger.Warn().Err(err).Str("collection", collection).Msg("failed to publish document change")
	}
}

// Watch implements Watcher. Events emitted by this instance are skipped.
func (s *DocumentStore) Watch(ctx context.Context) (<-chan models.ChangeEvent, error) {
	pubsub := s.client.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	events := make(chan models.ChangeEvent, 16)
	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change documentChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					s.logger.Warn().Err(err).Msg("invalid document change payload")
					continue
				}
				if change.Node == s.nodeID {
					continue
				}
				select {
				case events <- change.ChangeEvent:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

// projectDocument stores dates as Unix seconds.
type projectDocument struct {
	ID             string   `json:"id"`
	ModuleID       string   `json:"moduleId"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Deadline       int64    `json:"deadline"`
	StudentIDs     []string `json:"studentIds"`
	Status         string   `json:"status"`
	TrackingType   string   `json:"trackingType"`
	StepStatus     string   `json:"stepStatus,omitempty"`
	SubmissionDate *int64   `json:"submissionDate,omitempty"`
	Grade          *float64 `json:"grade,omitempty"`
	Comments       string   `json:"comments"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
}

func newProjectDocument(project models.Project) projectDocument {
	doc := projectDocument{
		ID:           project.ID,
		ModuleID:     project.ModuleID,
		Name:         project.Name,
		Description:  project.Description,
		Deadline:     project.Deadline.Unix(),
		StudentIDs:   project.StudentIDs,
		Status:       string(project.Status),
		TrackingType: string(project.TrackingType),
		StepStatus:   string(project.StepStatus),
		Grade:        project.Grade,
		Comments:     project.Comments,
		CreatedAt:    project.CreatedAt.Unix(),
		UpdatedAt:    project.UpdatedAt.Unix(),
	}
	if project.SubmissionDate != nil {
		submitted := project.SubmissionDate.Unix()
		doc.SubmissionDate = &submitted
	}
	return doc
}

func (d projectDocument) toModel() models.Project {
	project := models.Project{
		ID:           d.ID,
		ModuleID:     d.ModuleID,
		Name:         d.Name,
		Description:  d.Description,
		Deadline:     time.Unix(d.Deadline, 0).UTC(),
		StudentIDs:   d.StudentIDs,
		Status:       models.ProjectStatus(d.Status),
		TrackingType: models.TrackingType(d.TrackingType),
		StepStatus:   models.StepStatus(d.StepStatus),
		Grade:        d.Grade,
		Comments:     d.Comments,
		CreatedAt:    time.Unix(d.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(d.UpdatedAt, 0).UTC(),
	}
	if d.SubmissionDate != nil {
		submitted := time.Unix(*d.SubmissionDate, 0).UTC()
		project.SubmissionDate = &submitted
	}
	project.Normalize()
	return project
}

type docStudents struct{ s *DocumentStore }

func (r docStudents) List(ctx context.Context) ([]models.Student, error) {
	students := make([]models.Student, 0)
	err := r.s.all(ctx, models.CollectionStudents, func(raw []byte) error {
		var student models.Student
		if err := json.Unmarshal(raw, &student); err != nil {
			return err
		}
		students = append(students, student)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortStudents(students)
	return students, nil
}

func (r docStudents) Get(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if err := r.s.get(ctx, models.CollectionStudents, id, &student); err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r docStudents) Save(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = NewTimestampID()
	}
	student.AbsenceCount = models.NormalizeAbsence(student.AbsenceCount)
	return r.s.put(ctx, models.CollectionStudents, student.ID, student)
}

func (r docStudents) Delete(ctx context.Context, id string) error {
	return r.s.remove(ctx, models.CollectionStudents, id)
}

type docModules struct{ s *DocumentStore }

func (r docModules) List(ctx context.Context) ([]models.Module, error) {
	modules := make([]models.Module, 0)
	err := r.s.all(ctx, models.CollectionModules, func(raw []byte) error {
		var module models.Module
		if err := json.Unmarshal(raw, &module); err != nil {
			return err
		}
		module.Normalize()
		modules = append(modules, module)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortModules(modules)
	return modules, nil
}

func (r docModules) Get(ctx context.Context, id string) (models.Module, error) {
	var module models.Module
	if err := r.s.get(ctx, models.CollectionModules, id, &module); err != nil {
		return models.Module{}, err
	}
	module.Normalize()
	return module, nil
}

func (r docModules) Save(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = NewTimestampID()
	}
	module.Normalize()
	return r.s.put(ctx, models.CollectionModules, module.ID, module)
}

func (r docModules) Delete(ctx context.Context, id string) error {
	return r.s.remove(ctx, models.CollectionModules, id)
}

type docProjects struct{ s *DocumentStore }

func (r docProjects) List(ctx context.Context) ([]models.Project, error) {
	projects := make([]models.Project, 0)
	err := r.s.all(ctx, models.CollectionProjects, func(raw []byte) error {
		var doc projectDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		projects = append(projects, doc.toModel())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortProjects(projects)
	return projects, nil
}

func (r docProjects) Get(ctx context.Context, id string) (models.Project, error) {
	var doc projectDocument
	if err := r.s.get(ctx, models.CollectionProjects, id, &doc); err != nil {
		return models.Project{}, err
	}
	return doc.toModel(), nil
}

func (r docProjects) Save(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = NewTimestampID()
	}
	stampProject(project, r.s.now())
	return r.s.put(ctx, models.CollectionProjects, project.ID, newProjectDocument(*project))
}

func (r docProjects) Delete(ctx context.Context, id string) error {
	return r.s.remove(ctx, models.CollectionProjects, id)
}
