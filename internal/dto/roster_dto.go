package dto

import (
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// RosterSnapshot is pushed to live subscribers after every change.
type RosterSnapshot struct {
	Students    []StudentResponse `json:"students"`
	Modules     []ModuleResponse  `json:"modules"`
	Projects    []ProjectResponse `json:"projects"`
	Store       string            `json:"store"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// NewRosterSnapshot converts a roster into its wire form.
func NewRosterSnapshot(roster models.Roster, store string, now time.Time) RosterSnapshot {
	return RosterSnapshot{
		Students:    NewStudentResponseSlice(roster.Students),
		Modules:     NewModuleResponseSlice(roster.Modules),
		Projects:    NewProjectResponseSlice(roster.Projects, now),
		Store:       store,
		GeneratedAt: now.UTC(),
	}
}

// SeedResult reports what a seed, reset or import wrote.
type SeedResult struct {
	Store    string `json:"store"`
	Seeded   bool   `json:"seeded"`
	Students int    `json:"students"`
	Modules  int    `json:"modules"`
	Projects int    `json:"projects"`
}
