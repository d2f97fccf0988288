package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

// ErrProjectNotFound is returned when a project id is unknown.
var ErrProjectNotFound = errors.New("project not found")

// ProjectService manages graded group projects.
type ProjectService interface {
	List(ctx context.Context, filter dto.ProjectFilter) ([]dto.ProjectResponse, error)
	Get(ctx context.Context, id string) (dto.ProjectResponse, error)
	Create(ctx context.Context, req dto.ProjectRequest) (dto.ProjectResponse, error)
	Update(ctx context.Context, id string, req dto.ProjectRequest) (dto.ProjectResponse, error)
	Delete(ctx context.Context, id string) error
	ChangeStatus(ctx context.Context, id string, req dto.ProjectStatusRequest) (dto.ProjectResponse, error)
	Grade(ctx context.Context, id string, req dto.ProjectGradeRequest) (dto.ProjectResponse, error)
	Details(ctx context.Context, id string) (dto.ProjectDetailsResponse, error)
}

type projectService struct {
	store     repository.Store
	events    RosterEvents
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProjectService constructs the project service.
func NewProjectService(store repository.Store, events RosterEvents, validate *validator.Validate, logger zerolog.Logger) ProjectService {
	return &projectService{
		store:     store,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "project_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/trombinoscope-api/internal/service/project"),
		now:       time.Now,
	}
}

func (s *projectService) List(ctx context.Context, filter dto.ProjectFilter) ([]dto.ProjectResponse, error) {
	projects, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	moduleID := strings.TrimSpace(filter.ModuleID)
	studentID := strings.TrimSpace(filter.StudentID)
	status := strings.TrimSpace(filter.Status)

	filtered := make([]models.Project, 0, len(projects))
	for _, project := range projects {
		if moduleID != "" && project.ModuleID != moduleID {
			continue
		}
		if studentID != "" && !project.HasStudent(studentID) {
			continue
		}
		if status != "" && string(project.Status) != status {
			continue
		}
		filtered = append(filtered, project)
	}
	return dto.NewProjectResponseSlice(filtered, s.now()), nil
}

func (s *projectService) Get(ctx context.Context, id string) (dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return dto.ProjectResponse{}, err
	}
	return dto.NewProjectResponse(project, s.now()), nil
}

func (s *projectService) Create(ctx context.Context, req dto.ProjectRequest) (dto.ProjectResponse, error) {
	project, err := s.build(req, "")
	if err != nil {
		return dto.ProjectResponse{}, err
	}
	return s.save(ctx, project, "projects.create")
}

func (s *projectService) Update(ctx context.Context, id string, req dto.ProjectRequest) (dto.ProjectResponse, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return dto.ProjectResponse{}, err
	}
	project, err := s.build(req, existing.ID)
	if err != nil {
		return dto.ProjectResponse{}, err
	}
	project.CreatedAt = existing.CreatedAt
	return s.save(ctx, project, "projects.update")
}

func (s *projectService) Delete(ctx context.Context, id string) error {
	if err := s.store.Projects().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.events.Publish(ctx, changeEvent(models.CollectionProjects, models.ChangeDeleted, id))
	s.logger.Info().Str("project_id", id).Msg("project deleted")
	return nil
}

func (s *projectService) ChangeStatus(ctx context.Context, id string, req dto.ProjectStatusRequest) (dto.ProjectResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ProjectResponse{}, err
	}

	project, err := s.find(ctx, id)
	if err != nil {
		return dto.ProjectResponse{}, err
	}

	project.Status = models.ProjectStatus(req.Status)
	if req.StepStatus != "" {
		project.StepStatus = models.StepStatus(req.StepStatus)
	}
	if project.IsSubmitted() && project.SubmissionDate == nil {
		today := models.DateOnly(s.now())
		project.SubmissionDate = &today
	}
	return s.save(ctx, project, "projects.change_status")
}

func (s *projectService) Grade(ctx context.Context, id string, req dto.ProjectGradeRequest) (dto.ProjectResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ProjectResponse{}, err
	}

	project, err := s.find(ctx, id)
	if err != nil {
		return dto.ProjectResponse{}, err
	}

	grade := *req.Grade
	project.Grade = &grade
	project.Comments = strings.TrimSpace(s.sanitizer.Sanitize(req.Comments))
	return s.save(ctx, project, "projects.grade")
}

func (s *projectService) Details(ctx context.Context, id string) (dto.ProjectDetailsResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return dto.ProjectDetailsResponse{}, err
	}

	details := dto.ProjectDetailsResponse{
		Project:    dto.NewProjectResponse(project, s.now()),
		ModuleName: models.UnknownModuleName,
		Students:   make([]dto.StudentResponse, 0, len(project.StudentIDs)),
	}

	module, err := s.store.Modules().Get(ctx, project.ModuleID)
	switch {
	case err == nil:
		response := dto.NewModuleResponse(module)
		details.Module = &response
		details.ModuleName = module.Name
	case errors.Is(err, repository.ErrNotFound):
	default:
		return dto.ProjectDetailsResponse{}, fmt.Errorf("failed to load module: %w", err)
	}

	for _, studentID := range project.StudentIDs {
		student, err := s.store.Students().Get(ctx, studentID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return dto.ProjectDetailsResponse{}, fmt.Errorf("failed to load student: %w", err)
		}
		details.Students = append(details.Students, dto.NewStudentResponse(student))
	}
	return details, nil
}

func (s *projectService) build(req dto.ProjectRequest, id string) (models.Project, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	req.Comments = strings.TrimSpace(s.sanitizer.Sanitize(req.Comments))
	if err := s.validator.Struct(req); err != nil {
		return models.Project{}, err
	}
	return req.ToModel(id)
}

func (s *projectService) save(ctx context.Context, project models.Project, operation string) (dto.ProjectResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, operation, trace.WithAttributes(
		attribute.String("project.module_id", project.ModuleID),
		attribute.String("project.status", string(project.Status)),
	))
	defer span.End()

	if err := s.store.Projects().Save(spanCtx, &project); err != nil {
		span.RecordError(err)
		if errors.Is(err, repository.ErrNotFound) {
			return dto.ProjectResponse{}, ErrProjectNotFound
		}
		return dto.ProjectResponse{}, fmt.Errorf("failed to save project: %w", err)
	}

	s.events.Publish(ctx, changeEvent(models.CollectionProjects, models.ChangeSaved, project.ID))
	return dto.NewProjectResponse(project, s.now()), nil
}

func (s *projectService) find(ctx context.Context, id string) (models.Project, error) {
	project, err := s.store.Projects().Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, fmt.Errorf("failed to load project: %w", err)
	}
	return project, nil
}
