package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

// ErrStudentNotFound is returned when a student id is unknown.
var ErrStudentNotFound = errors.New("student not found")

// StudentService manages the student directory.
type StudentService interface {
	List(ctx context.Context, filter dto.StudentFilter) ([]dto.StudentResponse, error)
	Get(ctx context.Context, id string) (dto.StudentResponse, error)
	Create(ctx context.Context, req dto.StudentRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, id string, req dto.StudentRequest) (dto.StudentResponse, error)
	Delete(ctx context.Context, id string) error
	AdjustAbsence(ctx context.Context, id string, req dto.AbsenceAdjustRequest) (dto.StudentResponse, error)
	SetPhoto(ctx context.Context, id, photo string) (dto.StudentResponse, error)
	ListProjects(ctx context.Context, id string) ([]dto.ProjectResponse, error)
}

type studentService struct {
	store     repository.Store
	events    RosterEvents
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(store repository.Store, events RosterEvents, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		store:     store,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "student_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/trombinoscope-api/internal/service/student"),
		now:       time.Now,
	}
}

func (s *studentService) List(ctx context.Context, filter dto.StudentFilter) ([]dto.StudentResponse, error) {
	students, err := s.store.Students().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		return dto.NewStudentResponseSlice(students), nil
	}

	matched := make([]models.Student, 0, len(students))
	for _, student := range students {
		if studentMatches(student, search) {
			matched = append(matched, student)
		}
	}
	return dto.NewStudentResponseSlice(matched), nil
}

func studentMatches(student models.Student, search string) bool {
	fields := []string{student.FirstName, student.LastName, student.FullName(), student.Email, student.StudentNumber}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func (s *studentService) Get(ctx context.Context, id string) (dto.StudentResponse, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, req dto.StudentRequest) (dto.StudentResponse, error) {
	req = trimStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "students.create")
	defer span.End()

	student := req.ToModel("")
	if err := s.store.Students().Save(spanCtx, &student); err != nil {
		span.RecordError(err)
		return dto.StudentResponse{}, fmt.Errorf("failed to save student: %w", err)
	}
	span.SetAttributes(attribute.String("student.id", student.ID))

	s.events.Publish(ctx, changeEvent(models.CollectionStudents, models.ChangeSaved, student.ID))
	s.logger.Info().Str("student_id", student.ID).Str("email", maskEmail(student.Email)).Msg("student created")
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, id string, req dto.StudentRequest) (dto.StudentResponse, error) {
	req = trimStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}
	if _, err := s.find(ctx, id); err != nil {
		return dto.StudentResponse{}, err
	}

	student := req.ToModel(id)
	return s.save(ctx, student)
}

func (s *studentService) Delete(ctx context.Context, id string) error {
	if err := s.store.Students().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to delete student: %w", err)
	}

	s.events.Publish(ctx, changeEvent(models.CollectionStudents, models.ChangeDeleted, id))
	s.logger.Info().Str("student_id", id).Msg("student deleted")
	return nil
}

func (s *studentService) AdjustAbsence(ctx context.Context, id string, req dto.AbsenceAdjustRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.find(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	student.AbsenceCount = student.AbsenceCount.Add(req.Delta)
	return s.save(ctx, student)
}

func (s *studentService) SetPhoto(ctx context.Context, id, photo string) (dto.StudentResponse, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	student.Photo = strings.TrimSpace(photo)
	return s.save(ctx, student)
}

func (s *studentService) ListProjects(ctx context.Context, id string) ([]dto.ProjectResponse, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	projects, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	assigned := make([]models.Project, 0)
	for _, project := range projects {
		if project.HasStudent(id) {
			assigned = append(assigned, project)
		}
	}
	return dto.NewProjectResponseSlice(assigned, s.now()), nil
}

func (s *studentService) find(ctx context.Context, id string) (models.Student, error) {
	student, err := s.store.Students().Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, fmt.Errorf("failed to load student: %w", err)
	}
	return student, nil
}

func (s *studentService) save(ctx context.Context, student models.Student) (dto.StudentResponse, error) {
	if err := s.store.Students().Save(ctx, &student); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, fmt.Errorf("failed to save student: %w", err)
	}
	s.events.Publish(ctx, changeEvent(models.CollectionStudents, models.ChangeSaved, student.ID))
	return dto.NewStudentResponse(student), nil
}

func trimStudentRequest(req dto.StudentRequest) dto.StudentRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	req.Photo = strings.TrimSpace(req.Photo)
	return req
}
