package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

func TestProjectRequestValidation(t *testing.T) {
	validate := NewValidator()
	grade := 21.0

	valid := ProjectRequest{ModuleID: "m1", Name: "API", Deadline: "2024-05-01", Status: "À corriger", StepStatus: "Point d'étape 1", TrackingType: "step_by_step"}
	require.NoError(t, validate.Struct(valid))

	cases := map[string]ProjectRequest{
		"unknown status": {ModuleID: "m1", Name: "API", Deadline: "2024-05-01", Status: "Done"},
		"bad deadline":   {ModuleID: "m1", Name: "API", Deadline: "01/05/2024"},
		"grade too high": {ModuleID: "m1", Name: "API", Deadline: "2024-05-01", Grade: &grade},
		"bad tracking":   {ModuleID: "m1", Name: "API", Deadline: "2024-05-01", TrackingType: "weekly"},
		"missing module": {Name: "API", Deadline: "2024-05-01"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, validate.Struct(req))
		})
	}
}

func TestGradeRequestAcceptsZero(t *testing.T) {
	validate := NewValidator()
	zero := 0.0
	require.NoError(t, validate.Struct(ProjectGradeRequest{Grade: &zero}))
	require.Error(t, validate.Struct(ProjectGradeRequest{}))
}

func TestModuleAndStudentValidation(t *testing.T) {
	validate := NewValidator()
	require.NoError(t, validate.Struct(ModuleRequest{Name: "Web", Color: "#1976d2"}))
	require.Error(t, validate.Struct(ModuleRequest{Name: "Web", Color: "blue"}))

	require.NoError(t, validate.Struct(StudentRequest{FirstName: "Ana", LastName: "Albert", Email: "ana@example.com", Photo: "data:image/png;base64,AAAA"}))
	require.Error(t, validate.Struct(StudentRequest{FirstName: "Ana", LastName: "Albert", Email: "not-an-email"}))
	require.Error(t, validate.Struct(StudentRequest{FirstName: "Ana", LastName: "Albert", Photo: "javascript:alert(1)"}))
}

func TestProjectRequestToModel(t *testing.T) {
	submitted := "2024-04-30"
	req := ProjectRequest{
		ModuleID:       " m1 ",
		Name:           "API",
		Deadline:       "2024-05-01",
		StudentIDs:     []string{"s1", "s1", " ", "s2"},
		SubmissionDate: &submitted,
	}

	project, err := req.ToModel("p1")
	require.NoError(t, err)
	require.Equal(t, "m1", project.ModuleID)
	require.Equal(t, []string{"s1", "s2"}, project.StudentIDs)
	require.Equal(t, models.ProjectStatusNotSubmitted, project.Status)
	require.Equal(t, models.TrackingSimple, project.TrackingType)
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), project.Deadline)
	require.NotNil(t, project.SubmissionDate)

	response := NewProjectResponse(project, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, "2024-05-01", response.Deadline)
	require.Equal(t, "2024-04-30", *response.SubmissionDate)
	require.True(t, response.Overdue)
}

func TestExportFilename(t *testing.T) {
	require.Equal(t, DefaultWorkbookName, ExportOptions{}.FilenameOr(DefaultWorkbookName))
	require.Equal(t, "classe_a.xlsx", ExportOptions{Filename: "classe/a"}.FilenameOr(DefaultWorkbookName))
	require.Equal(t, "rapport.PDF", ExportOptions{Filename: "rapport.PDF"}.FilenameOr(DefaultReportName))
}

func TestStudentResponseNormalizesAbsence(t *testing.T) {
	response := NewStudentResponse(models.Student{FirstName: "ana", LastName: "albert", AbsenceCount: -2})
	require.Equal(t, 0, response.AbsenceCount)
	require.Equal(t, "AA", response.Initials)
	require.False(t, response.HasPhoto)
}
