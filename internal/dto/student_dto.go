package dto

import (
	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// StudentRequest describes the payload for creating or replacing a student.
type StudentRequest struct {
	FirstName     string              `json:"first_name" validate:"required,max=100"`
	LastName      string              `json:"last_name" validate:"required,max=100"`
	Email         string              `json:"email" validate:"omitempty,email,max=255"`
	StudentNumber string              `json:"student_number" validate:"omitempty,max=32"`
	Photo         string              `json:"photo" validate:"omitempty,photo_ref"`
	AbsenceCount  models.AbsenceCount `json:"absence_count"`
}

// ToModel builds a student from the request.
func (r StudentRequest) ToModel(id string) models.Student {
	return models.Student{
		ID:            id,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		StudentNumber: r.StudentNumber,
		Photo:         r.Photo,
		AbsenceCount:  models.NormalizeAbsence(r.AbsenceCount),
	}
}

// AbsenceAdjustRequest adds (or removes, when negative) absences.
type AbsenceAdjustRequest struct {
	Delta int `json:"delta" validate:"required,min=-100,max=100"`
}

// StudentFilter narrows the student list.
type StudentFilter struct {
	Search string
}

// StudentResponse is the serialized representation returned to API clients.
type StudentResponse struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	Initials      string `json:"initials"`
	Email         string `json:"email"`
	StudentNumber string `json:"student_number"`
	Photo         string `json:"photo"`
	HasPhoto      bool   `json:"has_photo"`
	AbsenceCount  int    `json:"absence_count"`
}

// NewStudentResponse converts a model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:            model.ID,
		FirstName:     model.FirstName,
		LastName:      model.LastName,
		FullName:      model.FullName(),
		Initials:      model.Initials(),
		Email:         model.Email,
		StudentNumber: model.StudentNumber,
		Photo:         model.Photo,
		HasPhoto:      model.HasPhoto(),
		AbsenceCount:  int(models.NormalizeAbsence(model.AbsenceCount)),
	}
}

// NewStudentResponseSlice converts a slice of models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}
	return responses
}
