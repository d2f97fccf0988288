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

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

// ErrModuleNotFound is returned when a module id is unknown.
var ErrModuleNotFound = errors.New("module not found")

// ModuleService manages teaching modules.
type ModuleService interface {
	List(ctx context.Context) ([]dto.ModuleResponse, error)
	Get(ctx context.Context, id string) (dto.ModuleResponse, error)
	Create(ctx context.Context, req dto.ModuleRequest) (dto.ModuleResponse, error)
	Update(ctx context.Context, id string, req dto.ModuleRequest) (dto.ModuleResponse, error)
	Delete(ctx context.Context, id string) error
	ListProjects(ctx context.Context, id string) ([]dto.ProjectResponse, error)
}

type moduleService struct {
	store     repository.Store
	events    RosterEvents
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewModuleService constructs the module service.
func NewModuleService(store repository.Store, events RosterEvents, validate *validator.Validate, logger zerolog.Logger) ModuleService {
	return &moduleService{
		store:     store,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "module_service").Logger(),
		now:       time.Now,
	}
}

func (s *moduleService) List(ctx context.Context) ([]dto.ModuleResponse, error) {
	modules, err := s.store.Modules().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return dto.NewModuleResponseSlice(modules), nil
}

func (s *moduleService) Get(ctx context.Context, id string) (dto.ModuleResponse, error) {
	module, err := s.find(ctx, id)
	if err != nil {
		return dto.ModuleResponse{}, err
	}
	return dto.NewModuleResponse(module), nil
}

func (s *moduleService) Create(ctx context.Context, req dto.ModuleRequest) (dto.ModuleResponse, error) {
	return s.write(ctx, "", s.clean(req))
}

func (s *moduleService) Update(ctx context.Context, id string, req dto.ModuleRequest) (dto.ModuleResponse, error) {
	if _, err := s.find(ctx, id); err != nil {
		return dto.ModuleResponse{}, err
	}
	return s.write(ctx, id, s.clean(req))
}

func (s *moduleService) Delete(ctx context.Context, id string) error {
	if err := s.store.Modules().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrModuleNotFound
		}
		return fmt.Errorf("failed to delete module: %w", err)
	}
	s.events.Publish(ctx, changeEvent(models.CollectionModules, models.ChangeDeleted, id))
	s.logger.Info().Str("module_id", id).Msg("module deleted")
	return nil
}

func (s *moduleService) ListProjects(ctx context.Context, id string) ([]dto.ProjectResponse, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	projects, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	filtered := make([]models.Project, 0)
	for _, project := range projects {
		if project.ModuleID == id {
			filtered = append(filtered, project)
		}
	}
	return dto.NewProjectResponseSlice(filtered, s.now()), nil
}

func (s *moduleService) clean(req dto.ModuleRequest) dto.ModuleRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	req.Color = strings.ToLower(strings.TrimSpace(req.Color))
	return req
}

func (s *moduleService) write(ctx context.Context, id string, req dto.ModuleRequest) (dto.ModuleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ModuleResponse{}, err
	}

	module := req.ToModel(id)
	if err := s.store.Modules().Save(ctx, &module); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.ModuleResponse{}, ErrModuleNotFound
		}
		return dto.ModuleResponse{}, fmt.Errorf("failed to save module: %w", err)
	}
	s.events.Publish(ctx, changeEvent(models.CollectionModules, models.ChangeSaved, module.ID))
	return dto.NewModuleResponse(module), nil
}

func (s *moduleService) find(ctx context.Context, id string) (models.Module, error) {
	module, err := s.store.Modules().Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Module{}, ErrModuleNotFound
		}
		return models.Module{}, fmt.Errorf("failed to load module: %w", err)
	}
	return module, nil
}
