package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
)

func TestProjectHandler_ListFilters(t *testing.T) {
	r := newRosterApp(t)

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{name: "all", query: "", want: 9},
		{name: "module", query: "?module_id=1", want: 4},
		{name: "student", query: "?student_id=demo-1", want: 3},
		{name: "status", query: "?status=Remis", want: 2},
		{name: "combined", query: "?module_id=1&student_id=demo-3", want: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := r.do(t, http.MethodGet, "/api/v1/projects"+tc.query, nil)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			var projects []dto.ProjectResponse
			body := decodeEnvelope(t, resp, &projects)
			require.Len(t, projects, tc.want)
			require.EqualValues(t, tc.want, body.Meta["total"])
		})
	}
}

func TestProjectHandler_CreateAndValidation(t *testing.T) {
	r := newRosterApp(t)

	resp := r.do(t, http.MethodPost, "/api/v1/projects", dto.ProjectRequest{
		ModuleID:   "2",
		Name:       "Note de synthèse",
		Deadline:   "2024-06-30",
		StudentIDs: []string{"demo-4", "demo-4", "demo-5"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.ProjectResponse
	decodeEnvelope(t, resp, &created)
	require.Equal(t, []string{"demo-4", "demo-5"}, created.StudentIDs)
	require.Equal(t, "Non remis", created.Status)
	require.Equal(t, "2024-06-30", created.Deadline)

	resp = r.do(t, http.MethodPost, "/api/v1/projects", dto.ProjectRequest{
		ModuleID: "2",
		Name:     "Sans date",
		Deadline: "30/06/2024",
		Status:   "Perdu",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeEnvelope(t, resp, nil)
	require.ElementsMatch(t, []string{"deadline", "status"}, fieldNames(t, body.Details))
}

func TestProjectHandler_StatusAndGrade(t *testing.T) {
	r := newRosterApp(t)

	resp := r.do(t, http.MethodPatch, "/api/v1/projects/3/status", dto.ProjectStatusRequest{Status: "Remis"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var project dto.ProjectResponse
	decodeEnvelope(t, resp, &project)
	require.Equal(t, "Remis", project.Status)
	require.NotNil(t, project.SubmissionDate)

	resp = r.do(t, http.MethodPatch, "/api/v1/projects/3/status", map[string]string{"status": "Terminé"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	zero := 0.0
	resp = r.do(t, http.MethodPatch, "/api/v1/projects/3/grade", dto.ProjectGradeRequest{Grade: &zero, Comments: "<b>Hors sujet</b>"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeEnvelope(t, resp, &project)
	require.NotNil(t, project.Grade)
	require.Zero(t, *project.Grade)
	require.Equal(t, "Hors sujet", project.Comments)

	over := 21.0
	resp = r.do(t, http.MethodPatch, "/api/v1/projects/3/grade", dto.ProjectGradeRequest{Grade: &over})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeEnvelope(t, resp, nil)
	require.Equal(t, []string{"grade"}, fieldNames(t, body.Details))

	resp = r.do(t, http.MethodPatch, "/api/v1/projects/404/grade", dto.ProjectGradeRequest{Grade: &zero})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProjectHandler_Details(t *testing.T) {
	r := newRosterApp(t)

	resp := r.do(t, http.MethodGet, "/api/v1/projects/1/details", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var details dto.ProjectDetailsResponse
	decodeEnvelope(t, resp, &details)
	require.Equal(t, "Atelier Conseil", details.ModuleName)
	require.NotNil(t, details.Module)
	require.Len(t, details.Students, 2)

	resp = r.do(t, http.MethodGet, "/api/v1/projects/missing/details", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProjectHandler_Delete(t *testing.T) {
	r := newRosterApp(t)

	resp := r.do(t, http.MethodDelete, "/api/v1/projects/9", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = r.do(t, http.MethodGet, "/api/v1/projects/9", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
