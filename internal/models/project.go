package models

import (
	"strings"
	"time"
)

// ProjectStatus is the lifecycle label of a project.
type ProjectStatus string

// Project lifecycle labels, stored verbatim in every backend.
const (
	ProjectStatusNotSubmitted ProjectStatus = "Non remis"
	ProjectStatusSubmitted    ProjectStatus = "Remis"
	ProjectStatusToCorrect    ProjectStatus = "À corriger"
	ProjectStatusValidated    ProjectStatus = "Validé"
)

// ProjectStatuses lists every lifecycle label in display order.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusNotSubmitted,
	ProjectStatusSubmitted,
	ProjectStatusToCorrect,
	ProjectStatusValidated,
}

// Valid reports whether the status is one of the known labels.
func (s ProjectStatus) Valid() bool {
	for _, status := range ProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// TrackingType selects how a project's progress is followed.
type TrackingType string

const (
	TrackingSimple     TrackingType = "simple"
	TrackingStepByStep TrackingType = "step_by_step"
)

// StepStatus names the current checkpoint of a step-by-step project.
type StepStatus string

const (
	StepCheckpoint1     StepStatus = "Point d'étape 1"
	StepCheckpoint2     StepStatus = "Point d'étape 2"
	StepDateValidation  StepStatus = "Validation des dates des restitutions"
	StepFinalSubmission StepStatus = "Remise des travaux"
)

// StepStatuses lists checkpoints in order.
var StepStatuses = []StepStatus{StepCheckpoint1, StepCheckpoint2, StepDateValidation, StepFinalSubmission}

// Grade bounds.
const (
	MinGrade = 0.0
	MaxGrade = 20.0
)

// Project is a graded group assignment tied to one module.
type Project struct {
	ID             string        `json:"id"`
	ModuleID       string        `json:"module_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Deadline       time.Time     `json:"deadline"`
	StudentIDs     []string      `json:"student_ids"`
	Status         ProjectStatus `json:"status"`
	TrackingType   TrackingType  `json:"tracking_type"`
	StepStatus     StepStatus    `json:"step_status,omitempty"`
	SubmissionDate *time.Time    `json:"submission_date,omitempty"`
	Grade          *float64      `json:"grade,omitempty"`
	Comments       string        `json:"comments,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Normalize fills lifecycle defaults and drops values that do not apply.
func (p *Project) Normalize() {
	if !p.Status.Valid() {
		p.Status = ProjectStatusNotSubmitted
	}
	if p.TrackingType != TrackingStepByStep {
		p.TrackingType = TrackingSimple
		p.StepStatus = ""
	}
	if p.StudentIDs == nil {
		p.StudentIDs = []string{}
	}
}

// IsSubmitted reports whether the work was handed in (submitted or validated).
func (p Project) IsSubmitted() bool {
	return p.Status == ProjectStatusSubmitted || p.Status == ProjectStatusValidated
}

// IsGraded reports whether a grade was recorded.
func (p Project) IsGraded() bool {
	return p.Grade != nil
}

// IsOverdue reports whether the deadline passed without a submission.
func (p Project) IsOverdue(reference time.Time) bool {
	if p.Deadline.IsZero() {
		return false
	}
	return reference.After(p.Deadline) && p.Status == ProjectStatusNotSubmitted
}

// HasStudent reports whether the student is assigned to the project.
func (p Project) HasStudent(studentID string) bool {
	studentID = strings.TrimSpace(studentID)
	for _, id := range p.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// DateOnly truncates a timestamp to midnight UTC of the same calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
