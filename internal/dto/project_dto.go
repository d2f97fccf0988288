package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// DateLayout is the calendar-date format used for deadlines and submission dates.
const DateLayout = "2006-01-02"

// ProjectRequest describes the payload for creating or replacing a project.
type ProjectRequest struct {
	ModuleID       string   `json:"module_id" validate:"required"`
	Name           string   `json:"name" validate:"required,max=200"`
	Description    string   `json:"description" validate:"omitempty,max=5000"`
	Deadline       string   `json:"deadline" validate:"required,datetime=2006-01-02"`
	StudentIDs     []string `json:"student_ids" validate:"omitempty,dive,required"`
	Status         string   `json:"status" validate:"omitempty,project_status"`
	TrackingType   string   `json:"tracking_type" validate:"omitempty,oneof=simple step_by_step"`
	StepStatus     string   `json:"step_status" validate:"omitempty,step_status"`
	SubmissionDate *string  `json:"submission_date" validate:"omitempty,datetime=2006-01-02"`
	Grade          *float64 `json:"grade" validate:"omitempty,gte=0,lte=20"`
	Comments       string   `json:"comments" validate:"omitempty,max=5000"`
}

// ToModel builds a project from a validated request.
func (r ProjectRequest) ToModel(id string) (models.Project, error) {
	deadline, err := time.Parse(DateLayout, r.Deadline)
	if err != nil {
		return models.Project{}, fmt.Errorf("invalid deadline: %w", err)
	}

	project := models.Project{
		ID:           id,
		ModuleID:     strings.TrimSpace(r.ModuleID),
		Name:         r.Name,
		Description:  r.Description,
		Deadline:     deadline,
		StudentIDs:   uniqueIDs(r.StudentIDs),
		Status:       models.ProjectStatus(r.Status),
		TrackingType: models.TrackingType(r.TrackingType),
		StepStatus:   models.StepStatus(r.StepStatus),
		Grade:        r.Grade,
		Comments:     r.Comments,
	}
	if r.SubmissionDate != nil && *r.SubmissionDate != "" {
		submitted, err := time.Parse(DateLayout, *r.SubmissionDate)
		if err != nil {
			return models.Project{}, fmt.Errorf("invalid submission date: %w", err)
		}
		project.SubmissionDate = &submitted
	}
	project.Normalize()
	return project, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// ProjectStatusRequest moves a project to another lifecycle label.
type ProjectStatusRequest struct {
	Status     string `json:"status" validate:"required,project_status"`
	StepStatus string `json:"step_status" validate:"omitempty,step_status"`
}

// ProjectGradeRequest records a grade out of 20.
type ProjectGradeRequest struct {
	Grade    *float64 `json:"grade" validate:"required,gte=0,lte=20"`
	Comments string   `json:"comments" validate:"omitempty,max=5000"`
}

// ProjectFilter narrows the project list.
type ProjectFilter struct {
	ModuleID  string
	StudentID string
	Status    string
}

// ProjectResponse is the serialized representation returned to API clients.
type ProjectResponse struct {
	ID             string    `json:"id"`
	ModuleID       string    `json:"module_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Deadline       string    `json:"deadline"`
	StudentIDs     []string  `json:"student_ids"`
	Status         string    `json:"status"`
	TrackingType   string    `json:"tracking_type"`
	StepStatus     string    `json:"step_status,omitempty"`
	SubmissionDate *string   `json:"submission_date"`
	Grade          *float64  `json:"grade"`
	Comments       string    `json:"comments"`
	Overdue        bool      `json:"overdue"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewProjectResponse converts a model into a DTO. now decides the overdue flag.
func NewProjectResponse(model models.Project, now time.Time) ProjectResponse {
	model.Normalize()
	response := ProjectResponse{
		ID:           model.ID,
		ModuleID:     model.ModuleID,
		Name:         model.Name,
		Description:  model.Description,
		Deadline:     model.Deadline.Format(DateLayout),
		StudentIDs:   model.StudentIDs,
		Status:       string(model.Status),
		TrackingType: string(model.TrackingType),
		StepStatus:   string(model.StepStatus),
		Grade:        model.Grade,
		Comments:     model.Comments,
		Overdue:      model.IsOverdue(now),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if model.SubmissionDate != nil {
		submitted := model.SubmissionDate.Format(DateLayout)
		response.SubmissionDate = &submitted
	}
	return response
}

// NewProjectResponseSlice converts a slice of models into DTOs.
func NewProjectResponseSlice(projects []models.Project, now time.Time) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		responses = append(responses, NewProjectResponse(project, now))
	}
	return responses
}

// ProjectDetailsResponse resolves a project's module and students.
type ProjectDetailsResponse struct {
	Project    ProjectResponse   `json:"project"`
	Module     *ModuleResponse   `json:"module"`
	ModuleName string            `json:"module_name"`
	Students   []StudentResponse `json:"students"`
}
