package models

import "strings"

// DefaultModuleColor is applied when a module has no display color.
const DefaultModuleColor = "#1976d2"

// UnknownModuleName labels projects whose module no longer exists.
const UnknownModuleName = "Module inconnu"

// Module represents a teaching unit grouping projects.
type Module struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
}

// Normalize fills defaults that every backend relies on.
func (m *Module) Normalize() {
	if strings.TrimSpace(m.Color) == "" {
		m.Color = DefaultModuleColor
	}
}
