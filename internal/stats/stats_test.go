package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

func grade(v float64) *float64 { return &v }

func sampleRoster() models.Roster {
	deadline := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return models.Roster{
		Students: []models.Student{
			{ID: "s1", FirstName: "Ana", LastName: "Albert", AbsenceCount: 2},
			{ID: "s2", FirstName: "Zoé", LastName: "Bernard", AbsenceCount: -1},
			{ID: "s3", FirstName: "Léo", LastName: "Chen"},
		},
		Modules: []models.Module{{ID: "m1", Name: "Web"}, {ID: "m2", Name: "Algo"}},
		Projects: []models.Project{
			{ID: "p1", ModuleID: "m1", StudentIDs: []string{"s1", "s2"}, Status: models.ProjectStatusSubmitted, Grade: grade(16), Deadline: deadline},
			{ID: "p2", ModuleID: "m1", StudentIDs: []string{"s1"}, Status: models.ProjectStatusValidated, Grade: grade(0), Deadline: deadline},
			{ID: "p3", ModuleID: "m1", StudentIDs: []string{"s2"}, Status: models.ProjectStatusToCorrect, Deadline: deadline},
			{ID: "p4", ModuleID: "ghost", StudentIDs: []string{"s1", "unknown"}, Status: models.ProjectStatusNotSubmitted, Deadline: deadline},
		},
	}
}

func TestDashboardOverEmptyRoster(t *testing.T) {
	stats := Dashboard(models.Roster{}, time.Now())
	require.Zero(t, stats.TotalProjects)
	require.Zero(t, stats.AverageGrade)
	require.Zero(t, stats.SubmissionRate)
	require.False(t, math.IsNaN(stats.AverageGrade))
	require.Len(t, stats.StatusDistribution, 4)
	for _, count := range stats.StatusDistribution {
		require.Zero(t, count)
	}
}

func TestDashboardCounts(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	stats := Dashboard(sampleRoster(), now)

	require.Equal(t, 3, stats.TotalStudents)
	require.Equal(t, 2, stats.TotalModules)
	require.Equal(t, 4, stats.TotalProjects)
	require.Equal(t, 2, stats.SubmittedProjects)
	require.Equal(t, 1, stats.PendingCorrections)
	require.Equal(t, 1, stats.OverdueProjects)
	require.Equal(t, 2, stats.GradedProjects)
	require.InDelta(t, 8.0, stats.AverageGrade, 0.0001)
	require.InDelta(t, 50.0, stats.SubmissionRate, 0.0001)
	require.Equal(t, 2, stats.TotalAbsences)
	require.Equal(t, 1, stats.StatusDistribution["Remis"])
	require.Equal(t, 1, stats.StatusDistribution["Non remis"])
}

func TestModuleStats(t *testing.T) {
	results := Modules(sampleRoster())
	require.Len(t, results, 2)

	web := results[0]
	require.Equal(t, "m1", web.ModuleID)
	require.Equal(t, 3, web.TotalProjects)
	require.Equal(t, 2, web.SubmittedProjects)
	require.Equal(t, 1, web.ValidatedProjects)
	require.InDelta(t, 8.0, web.AverageGrade, 0.0001)
	require.InDelta(t, 66.666, web.SubmissionRate, 0.01)
	require.Equal(t, models.DefaultModuleColor, web.Color)

	algo := results[1]
	require.Zero(t, algo.TotalProjects)
	require.Zero(t, algo.SubmissionRate)
	require.Zero(t, algo.AverageGrade)
}

func TestStudentStats(t *testing.T) {
	results := Students(sampleRoster())
	require.Len(t, results, 3)

	ana := results[0]
	require.Equal(t, 3, ana.ProjectCount)
	require.Equal(t, 2, ana.SubmittedCount)
	require.Equal(t, 67, ana.SubmissionRate)
	require.NotNil(t, ana.AverageGrade)
	require.InDelta(t, 8.0, *ana.AverageGrade, 0.0001)

	zoe := results[1]
	require.Equal(t, 0, zoe.AbsenceCount)
	require.Equal(t, 50, zoe.SubmissionRate)

	leo := results[2]
	require.Zero(t, leo.ProjectCount)
	require.Zero(t, leo.SubmissionRate)
	require.Nil(t, leo.AverageGrade)
}
