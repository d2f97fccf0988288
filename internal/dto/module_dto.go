package dto

import "github.com/noah-isme/trombinoscope-api/internal/models"

// ModuleRequest describes the payload for creating or replacing a module.
type ModuleRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// ToModel builds a module from the request.
func (r ModuleRequest) ToModel(id string) models.Module {
	module := models.Module{ID: id, Name: r.Name, Description: r.Description, Color: r.Color}
	module.Normalize()
	return module
}

// ModuleResponse is the serialized representation returned to API clients.
type ModuleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// NewModuleResponse converts a model into a DTO.
func NewModuleResponse(model models.Module) ModuleResponse {
	model.Normalize()
	return ModuleResponse{ID: model.ID, Name: model.Name, Description: model.Description, Color: model.Color}
}

// NewModuleResponseSlice converts a slice of models into DTOs.
func NewModuleResponseSlice(modules []models.Module) []ModuleResponse {
	responses := make([]ModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, NewModuleResponse(module))
	}
	return responses
}
