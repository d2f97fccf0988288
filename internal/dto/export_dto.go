package dto

import "strings"

// Export formats.
const (
	ExportFormatXLSX   = "xlsx"
	ExportFormatPDF    = "pdf"
	ExportFormatPhotos = "photos"
)

// Default download names.
const (
	DefaultWorkbookName   = "trombinoscope_ege.xlsx"
	DefaultReportName     = "trombinoscope_ege.pdf"
	DefaultPhotoSheetName = "trombinoscope_photos.pdf"
)

// ExportOptions toggles sections of an export.
type ExportOptions struct {
	IncludeStudents bool   `query:"students"`
	IncludeProjects bool   `query:"projects"`
	IncludeGrades   bool   `query:"grades"`
	Filename        string `query:"filename"`
}

// DefaultExportOptions enables every section.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{IncludeStudents: true, IncludeProjects: true, IncludeGrades: true}
}

// FilenameOr returns the requested filename with the extension enforced, or fallback.
func (o ExportOptions) FilenameOr(fallback string) string {
	name := strings.TrimSpace(o.Filename)
	if name == "" {
		return fallback
	}
	name = strings.NewReplacer("/", "_", "\\", "_", "\"", "", "\n", "", "\r", "").Replace(name)
	ext := fallback[strings.LastIndex(fallback, "."):]
	if !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}

// ExportResult is a rendered document ready to download.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}
