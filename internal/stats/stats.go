// Package stats derives roster summaries. Every ratio guards its denominator.
package stats

import (
	"math"
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// Dashboard computes the roster-wide summary.
func Dashboard(roster models.Roster, now time.Time) dto.DashboardStats {
	stats := dto.DashboardStats{
		TotalStudents:      len(roster.Students),
		TotalModules:       len(roster.Modules),
		TotalProjects:      len(roster.Projects),
		StatusDistribution: make(map[string]int, len(models.ProjectStatuses)),
	}
	for _, status := range models.ProjectStatuses {
		stats.StatusDistribution[string(status)] = 0
	}
	for _, student := range roster.Students {
		stats.TotalAbsences += int(models.NormalizeAbsence(student.AbsenceCount))
	}

	var gradeTotal float64
	for _, project := range roster.Projects {
		project.Normalize()
		stats.StatusDistribution[string(project.Status)]++
		if project.IsSubmitted() {
			stats.SubmittedProjects++
		}
		if project.Status == models.ProjectStatusToCorrect {
			stats.PendingCorrections++
		}
		if project.IsOverdue(now) {
			stats.OverdueProjects++
		}
		if project.Grade != nil {
			stats.GradedProjects++
			gradeTotal += *project.Grade
		}
	}

	stats.AverageGrade = average(gradeTotal, stats.GradedProjects)
	stats.SubmissionRate = Percentage(stats.SubmittedProjects, stats.TotalProjects)
	return stats
}

// Modules computes one entry per module, in the roster's module order.
func Modules(roster models.Roster) []dto.ModuleStats {
	byModule := make(map[string][]models.Project, len(roster.Modules))
	for _, project := range roster.Projects {
		byModule[project.ModuleID] = append(byModule[project.ModuleID], project)
	}

	results := make([]dto.ModuleStats, 0, len(roster.Modules))
	for _, module := range roster.Modules {
		module.Normalize()
		entry := dto.ModuleStats{ModuleID: module.ID, ModuleName: module.Name, Color: module.Color}

		var gradeTotal float64
		var graded int
		for _, project := range byModule[module.ID] {
			entry.TotalProjects++
			if project.IsSubmitted() {
				entry.SubmittedProjects++
			}
			if project.Status == models.ProjectStatusValidated {
				entry.ValidatedProjects++
			}
			if project.Grade != nil {
				graded++
				gradeTotal += *project.Grade
			}
		}

		entry.AverageGrade = average(gradeTotal, graded)
		entry.SubmissionRate = Percentage(entry.SubmittedProjects, entry.TotalProjects)
		results = append(results, entry)
	}
	return results
}

// Students computes one entry per student, in the roster's student order.
func Students(roster models.Roster) []dto.StudentStats {
	results := make([]dto.StudentStats, 0, len(roster.Students))
	for _, student := range roster.Students {
		results = append(results, Student(student, roster.Projects))
	}
	return results
}

// Student aggregates the projects that list the student.
func Student(student models.Student, projects []models.Project) dto.StudentStats {
	entry := dto.StudentStats{
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		FirstName:     student.FirstName,
		LastName:      student.LastName,
		Email:         student.Email,
		AbsenceCount:  int(models.NormalizeAbsence(student.AbsenceCount)),
	}

	var gradeTotal float64
	var graded int
	for _, project := range projects {
		if !project.HasStudent(student.ID) {
			continue
		}
		entry.ProjectCount++
		if project.IsSubmitted() {
			entry.SubmittedCount++
		}
		if project.Grade != nil {
			graded++
			gradeTotal += *project.Grade
		}
	}

	entry.SubmissionRate = int(math.Round(Percentage(entry.SubmittedCount, entry.ProjectCount)))
	if graded > 0 {
		avg := gradeTotal / float64(graded)
		entry.AverageGrade = &avg
	}
	return entry
}

// Percentage returns part/total*100, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
