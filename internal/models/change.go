package models

import "time"

// Collection names shared by all backends.
const (
	CollectionStudents = "students"
	CollectionModules  = "modules"
	CollectionProjects = "projects"
)

// Change actions.
const (
	ChangeSaved   = "saved"
	ChangeDeleted = "deleted"
	ChangeReset   = "reset"
)

// ChangeEvent describes a write applied to one collection.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"`
	ID         string    `json:"id,omitempty"`
	Source     string    `json:"source,omitempty"`
	At         time.Time `json:"at"`
}

// Roster is a full snapshot of every collection.
type Roster struct {
	Students []Student `json:"students"`
	Modules  []Module  `json:"modules"`
	Projects []Project `json:"projects"`
}

// IsEmpty reports whether the snapshot holds no records at all.
func (r Roster) IsEmpty() bool {
	return len(r.Students) == 0 && len(r.Modules) == 0 && len(r.Projects) == 0
}
