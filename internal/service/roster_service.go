package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

// RosterService serves whole-roster snapshots to live clients.
type RosterService interface {
	Snapshot(ctx context.Context) (dto.RosterSnapshot, error)
	Subscribe() (<-chan models.ChangeEvent, func())
}

type rosterService struct {
	store  repository.Store
	events RosterEvents
	now    func() time.Time
}

// NewRosterService constructs the snapshot service.
func NewRosterService(store repository.Store, events RosterEvents) RosterService {
	return &rosterService{store: store, events: events, now: time.Now}
}

func (s *rosterService) Snapshot(ctx context.Context) (dto.RosterSnapshot, error) {
	roster, err := repository.LoadRoster(ctx, s.store)
	if err != nil {
		return dto.RosterSnapshot{}, fmt.Errorf("failed to load roster: %w", err)
	}
	return dto.NewRosterSnapshot(roster, s.store.Name(), s.now()), nil
}

func (s *rosterService) Subscribe() (<-chan models.ChangeEvent, func()) {
	return s.events.Subscribe()
}
