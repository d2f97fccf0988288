package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
	"github.com/noah-isme/trombinoscope-api/internal/seed"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads demo or imported rosters into the mounted store.
// Authorize guards the HTTP entry points; the CLI and startup call the
// operations directly.
type SeedService interface {
	Authorize(token string) error
	SeedIfEmpty(ctx context.Context) (dto.SeedResult, error)
	Reset(ctx context.Context) (dto.SeedResult, error)
	Import(ctx context.Context, payload []byte) (dto.SeedResult, error)
}

type seedService struct {
	store   repository.Store
	events  RosterEvents
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(store repository.Store, events RosterEvents, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		store:   store,
		events:  events,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) Authorize(token string) error {
	if !s.enabled {
		return ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return ErrSeedUnauthorized
	}
	return nil
}

func (s *seedService) SeedIfEmpty(ctx context.Context) (dto.SeedResult, error) {
	current, err := repository.LoadRoster(ctx, s.store)
	if err != nil {
		return dto.SeedResult{}, fmt.Errorf("failed to inspect store: %w", err)
	}
	if !current.IsEmpty() {
		s.logger.Debug().Str("store", s.store.Name()).Msg("store already populated, skipping seed")
		return dto.SeedResult{Store: s.store.Name()}, nil
	}

	roster, err := seed.Default()
	if err != nil {
		return dto.SeedResult{}, err
	}
	return s.write(ctx, roster)
}

func (s *seedService) Reset(ctx context.Context) (dto.SeedResult, error) {
	roster, err := seed.Default()
	if err != nil {
		return dto.SeedResult{}, err
	}
	if err := s.clear(ctx); err != nil {
		return dto.SeedResult{}, err
	}
	return s.write(ctx, roster)
}

func (s *seedService) Import(ctx context.Context, payload []byte) (dto.SeedResult, error) {
	roster, err := seed.Parse(payload)
	if err != nil {
		return dto.SeedResult{}, err
	}
	return s.write(ctx, roster)
}

func (s *seedService) clear(ctx context.Context) error {
	current, err := repository.LoadRoster(ctx, s.store)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	for _, project := range current.Projects {
		if err := ignoreMissing(s.store.Projects().Delete(ctx, project.ID)); err != nil {
			return fmt.Errorf("failed to delete project %s: %w", project.ID, err)
		}
	}
	for _, student := range current.Students {
		if err := ignoreMissing(s.store.Students().Delete(ctx, student.ID)); err != nil {
			return fmt.Errorf("failed to delete student %s: %w", student.ID, err)
		}
	}
	for _, module := range current.Modules {
		if err := ignoreMissing(s.store.Modules().Delete(ctx, module.ID)); err != nil {
			return fmt.Errorf("failed to delete module %s: %w", module.ID, err)
		}
	}
	s.logger.Info().
		Int("students", len(current.Students)).
		Int("modules", len(current.Modules)).
		Int("projects", len(current.Projects)).
		Msg("store cleared")
	return nil
}

func (s *seedService) write(ctx context.Context, roster models.Roster) (dto.SeedResult, error) {
	if bulk, ok := repository.Unwrap(s.store).(repository.BulkSaver); ok {
		if err := bulk.SaveRoster(ctx, &roster); err != nil {
			return dto.SeedResult{}, fmt.Errorf("failed to save roster: %w", err)
		}
	} else if err := s.saveEach(ctx, &roster); err != nil {
		return dto.SeedResult{}, err
	}

	result := dto.SeedResult{
		Store:    s.store.Name(),
		Seeded:   true,
		Students: len(roster.Students),
		Modules:  len(roster.Modules),
		Projects: len(roster.Projects),
	}
	if s.events != nil {
		s.events.Publish(ctx, models.ChangeEvent{Action: models.ChangeReset})
	}
	s.logger.Info().
		Str("store", result.Store).
		Int("students", result.Students).
		Int("modules", result.Modules).
		Int("projects", result.Projects).
		Msg("roster seeded")
	return result, nil
}

func (s *seedService) saveEach(ctx context.Context, roster *models.Roster) error {
	for i := range roster.Modules {
		if err := s.store.Modules().Save(ctx, &roster.Modules[i]); err != nil {
			return fmt.Errorf("failed to save module %s: %w", roster.Modules[i].ID, err)
		}
	}
	for i := range roster.Students {
		if err := s.store.Students().Save(ctx, &roster.Students[i]); err != nil {
			return fmt.Errorf("failed to save student %s: %w", roster.Students[i].ID, err)
		}
	}
	for i := range roster.Projects {
		if err := s.store.Projects().Save(ctx, &roster.Projects[i]); err != nil {
			return fmt.Errorf("failed to save project %s: %w", roster.Projects[i].ID, err)
		}
	}
	return nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtleConstantTimeCompare(expected, strings.TrimSpace(token))
}

func subtleConstantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	mismatch := byte(0)
	for i := 0; i < len(a); i++ {
		mismatch |= a[i] ^ b[i]
	}
	return mismatch == 0
}

func ignoreMissing(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
