package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/stats"
)

// ContentTypePDF is the media type of generated documents.
const ContentTypePDF = "application/pdf"

// ReportTitle heads the PDF report.
const ReportTitle = "Trombinoscope EGE - Suivi Étudiant"

const (
	pageMargin   = 20.0
	bottomMargin = 20.0
)

// page wraps an fpdf document with a vertical cursor. Text is written at the
// cursor baseline and a new page starts when the next block would pass the
// bottom margin.
type page struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	width  float64
	height float64
	y      float64
}

func newPage(title string, now time.Time) *page {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, bottomMargin)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetCreator("trombinoscope-api", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(title), false)
	pdf.AddPage()

	width, height := pdf.GetPageSize()
	return &page{pdf: pdf, tr: tr, width: width, height: height, y: pageMargin}
}

func (p *page) ensure(space float64) {
	if p.y+space > p.height-bottomMargin {
		p.pdf.AddPage()
		p.y = pageMargin
	}
}

func (p *page) font(style string, size float64) {
	p.pdf.SetFont("Helvetica", style, size)
}

func (p *page) text(x float64, value string) {
	p.pdf.Text(x, p.y, p.tr(value))
}

// cell writes value at x, shortened so it stays within width millimetres.
func (p *page) cell(x, width float64, value string) {
	p.pdf.Text(x, p.y, p.fit(p.tr(value), width))
}

func (p *page) centered(value string) {
	translated := p.tr(value)
	p.pdf.Text((p.width-p.pdf.GetStringWidth(translated))/2, p.y, translated)
}

func (p *page) fit(value string, width float64) string {
	if width <= 0 || p.pdf.GetStringWidth(value) <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && p.pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (p *page) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Report renders the paginated roster report.
func Report(roster models.Roster, opts dto.ExportOptions, now time.Time) ([]byte, error) {
	return report(roster, opts, now).bytes()
}

func report(roster models.Roster, opts dto.ExportOptions, now time.Time) *page {
	p := newPage(ReportTitle, now)

	p.font("B", 20)
	p.centered(ReportTitle)
	p.y += 15

	p.font("", 10)
	p.centered("Généré le " + now.Format(DateLayout))
	p.y += 20

	writeSummary(p, roster, opts, now)
	if opts.IncludeStudents {
		writeStudentList(p, roster.Students)
	}
	if opts.IncludeProjects {
		writeProjectsByModule(p, roster, opts.IncludeGrades)
	}
	if opts.IncludeStudents {
		writeStudentStats(p, roster, opts.IncludeGrades)
	}
	return p
}

func writeSummary(p *page, roster models.Roster, opts dto.ExportOptions, now time.Time) {
	dashboard := stats.Dashboard(roster, now)

	p.font("B", 16)
	p.text(pageMargin, "Résumé Général")
	p.y += 10

	lines := []string{
		fmt.Sprintf("• Nombre total d'étudiants: %d", dashboard.TotalStudents),
		fmt.Sprintf("• Nombre total de projets: %d", dashboard.TotalProjects),
		fmt.Sprintf("• Nombre de modules: %d", dashboard.TotalModules),
		fmt.Sprintf("• Projets rendus: %d (%.0f%%)", dashboard.SubmittedProjects, dashboard.SubmissionRate),
		fmt.Sprintf("• Projets en retard: %d", dashboard.OverdueProjects),
	}
	if opts.IncludeGrades && dashboard.GradedProjects > 0 {
		lines = append(lines, fmt.Sprintf("• Moyenne générale: %.1f/20", dashboard.AverageGrade))
	}

	p.font("", 12)
	for _, line := range lines {
		p.text(pageMargin, line)
		p.y += 6
	}
	p.y += 9
}

func writeStudentList(p *page, students []models.Student) {
	p.ensure(50)
	p.font("B", 16)
	p.text(pageMargin, "Liste des Étudiants")
	p.y += 10

	p.font("B", 10)
	p.text(20, "Numéro")
	p.text(50, "Nom")
	p.text(100, "Prénom")
	p.text(150, "Email")
	p.y += 6

	p.font("", 10)
	for _, student := range students {
		p.ensure(10)
		p.cell(20, 28, student.StudentNumber)
		p.cell(50, 48, student.LastName)
		p.cell(100, 48, student.FirstName)
		p.cell(150, p.width-150-pageMargin/2, student.Email)
		p.y += 6
	}
	p.y += 10
}

func writeProjectsByModule(p *page, roster models.Roster, grades bool) {
	p.ensure(50)
	p.font("B", 16)
	p.text(pageMargin, "Projets par Module")
	p.y += 10

	grouped := make(map[string][]models.Project, len(roster.Modules))
	for _, project := range roster.Projects {
		grouped[project.ModuleID] = append(grouped[project.ModuleID], project)
	}

	known := make(map[string]bool, len(roster.Modules))
	for _, module := range roster.Modules {
		known[module.ID] = true
		writeModuleProjects(p, module.Name, grouped[module.ID], grades)
	}

	var orphans []models.Project
	for _, project := range roster.Projects {
		if !known[project.ModuleID] {
			orphans = append(orphans, project)
		}
	}
	if len(orphans) > 0 {
		writeModuleProjects(p, models.UnknownModuleName, orphans, grades)
	}
}

func writeModuleProjects(p *page, name string, projects []models.Project, grades bool) {
	p.ensure(30)
	p.font("B", 14)
	p.text(pageMargin, name)
	p.y += 8

	p.font("", 10)
	for _, project := range projects {
		project.Normalize()
		p.ensure(15)
		p.cell(30, p.width-30-pageMargin, "• "+project.Name)
		p.y += 5
		p.text(35, "  Deadline: "+formatDate(project.Deadline))
		p.y += 5
		p.text(35, "  Statut: "+string(project.Status))
		if grades && project.Grade != nil {
			p.y += 5
			p.text(35, "  Note: "+strconv.FormatFloat(*project.Grade, 'f', -1, 64)+"/20")
		}
		p.y += 8
	}
	p.y += 5
}

func writeStudentStats(p *page, roster models.Roster, grades bool) {
	p.ensure(50)
	p.font("B", 16)
	p.text(pageMargin, "Statistiques par Étudiant")
	p.y += 10

	p.font("B", 10)
	p.text(20, "Étudiant")
	p.text(80, "Projets")
	p.text(100, "Rendus")
	if grades {
		p.text(120, "Moyenne")
	}
	p.y += 6

	p.font("", 10)
	for _, student := range roster.Students {
		p.ensure(10)
		entry := stats.Student(student, roster.Projects)
		p.cell(20, 58, student.FullName())
		p.text(80, strconv.Itoa(entry.ProjectCount))
		p.text(100, strconv.Itoa(entry.SubmittedCount))
		if grades {
			p.text(120, formatAverage(entry.AverageGrade, "-"))
		}
		p.y += 6
	}
}
