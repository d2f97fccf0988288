// Package export renders the roster as an xlsx workbook, a PDF report and a
// PDF photo sheet.
package export

import (
	"fmt"
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/stats"
)

// DateLayout is the dd/mm/yyyy layout used by every export.
const DateLayout = "02/01/2006"

// Sheet names of the workbook.
const (
	SheetStudents = "Étudiants"
	SheetProjects = "Projets"
	SheetModules  = "Modules"
	SheetSummary  = "Résumé Étudiants"
)

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// Sheets lays out the workbook content for the enabled sections.
func Sheets(roster models.Roster, opts dto.ExportOptions) []Sheet {
	sheets := make([]Sheet, 0, 4)
	if opts.IncludeStudents {
		sheets = append(sheets, studentSheet(roster))
	}
	if opts.IncludeProjects {
		sheets = append(sheets, projectSheet(roster, opts.IncludeGrades))
	}
	sheets = append(sheets, moduleSheet(roster))
	if opts.IncludeStudents {
		sheets = append(sheets, summarySheet(roster, opts.IncludeGrades))
	}
	return sheets
}

func studentSheet(roster models.Roster) Sheet {
	sheet := Sheet{
		Name:   SheetStudents,
		Header: []string{"Numéro Étudiant", "Prénom", "Nom", "Email", "Absences"},
	}
	for _, student := range roster.Students {
		sheet.Rows = append(sheet.Rows, []interface{}{
			student.StudentNumber,
			student.FirstName,
			student.LastName,
			student.Email,
			int(models.NormalizeAbsence(student.AbsenceCount)),
		})
	}
	return sheet
}

func projectSheet(roster models.Roster, grades bool) Sheet {
	sheet := Sheet{
		Name:   SheetProjects,
		Header: []string{"Nom du Projet", "Module", "Description", "Deadline", "Statut", "Date de Rendu"},
	}
	if grades {
		sheet.Header = append(sheet.Header, "Note", "Commentaires")
	}

	names := moduleNames(roster.Modules)
	for _, project := range roster.Projects {
		project.Normalize()
		row := []interface{}{
			project.Name,
			moduleName(names, project.ModuleID),
			project.Description,
			formatDate(project.Deadline),
			string(project.Status),
			formatDatePtr(project.SubmissionDate),
		}
		if grades {
			var grade interface{} = ""
			if project.Grade != nil {
				grade = *project.Grade
			}
			row = append(row, grade, project.Comments)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func moduleSheet(roster models.Roster) Sheet {
	sheet := Sheet{
		Name:   SheetModules,
		Header: []string{"Nom du Module", "Description", "Couleur"},
	}
	for _, module := range roster.Modules {
		module.Normalize()
		sheet.Rows = append(sheet.Rows, []interface{}{module.Name, module.Description, module.Color})
	}
	return sheet
}

func summarySheet(roster models.Roster, grades bool) Sheet {
	sheet := Sheet{
		Name:   SheetSummary,
		Header: []string{"Numéro Étudiant", "Prénom", "Nom", "Email", "Nombre de Projets", "Projets Rendus", "Taux de Rendu (%)"},
	}
	if grades {
		sheet.Header = append(sheet.Header, "Moyenne")
	}
	for _, entry := range stats.Students(roster) {
		row := []interface{}{
			entry.StudentNumber,
			entry.FirstName,
			entry.LastName,
			entry.Email,
			entry.ProjectCount,
			entry.SubmittedCount,
			entry.SubmissionRate,
		}
		if grades {
			row = append(row, formatAverage(entry.AverageGrade, ""))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func moduleNames(modules []models.Module) map[string]string {
	names := make(map[string]string, len(modules))
	for _, module := range modules {
		names[module.ID] = module.Name
	}
	return names
}

func moduleName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return models.UnknownModuleName
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func formatAverage(avg *float64, empty string) string {
	if avg == nil {
		return empty
	}
	return fmt.Sprintf("%.1f", *avg)
}
