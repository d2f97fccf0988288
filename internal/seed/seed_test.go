package seed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

func TestDefaultRosterIsConsistent(t *testing.T) {
	roster, err := Default()
	require.NoError(t, err)
	require.Len(t, roster.Students, 15)
	require.Len(t, roster.Modules, 4)
	require.Len(t, roster.Projects, 9)

	students := make(map[string]bool)
	for _, student := range roster.Students {
		require.False(t, students[student.ID], "duplicate student %s", student.ID)
		students[student.ID] = true
		require.Contains(t, student.Email, "@example.org")
		require.False(t, student.HasPhoto())
	}
	modules := make(map[string]bool)
	for _, module := range roster.Modules {
		modules[module.ID] = true
	}

	projects := make(map[string]bool)
	for _, project := range roster.Projects {
		require.False(t, projects[project.ID], "duplicate project %s", project.ID)
		projects[project.ID] = true
		require.True(t, modules[project.ModuleID])
		for _, id := range project.StudentIDs {
			require.True(t, students[id], "unknown student %s", id)
		}
	}

	stepped := roster.Projects[5]
	require.Equal(t, models.TrackingStepByStep, stepped.TrackingType)
	require.Equal(t, models.StepCheckpoint1, stepped.StepStatus)
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	first, err := Default()
	require.NoError(t, err)
	first.Students[0].FirstName = "changed"

	second, err := Default()
	require.NoError(t, err)
	require.NotEqual(t, "changed", second.Students[0].FirstName)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"missing section": `{"students":[],"modules":[]}`,
		"bad status":      `{"students":[],"modules":[],"projects":[{"id":"1","module_id":"m","name":"P","deadline":"2024-01-01T00:00:00Z","status":"Done"}]}`,
		"grade too high":  `{"students":[],"modules":[],"projects":[{"id":"1","module_id":"m","name":"P","deadline":"2024-01-01T00:00:00Z","grade":21}]}`,
		"bad deadline":    `{"students":[],"modules":[],"projects":[{"id":"1","module_id":"m","name":"P","deadline":"15/03/2024"}]}`,
		"nameless":        `{"students":[{"id":"1","first_name":"","last_name":"X"}],"modules":[],"projects":[]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(payload))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidRoster))
		})
	}
}

func TestParseIsLenientOnAbsences(t *testing.T) {
	roster, err := Parse([]byte(`{"students":[{"id":"1","first_name":"Ana","last_name":"B","absence_count":"NaN"}],"modules":[{"id":"m","name":"Web"}],"projects":[]}`))
	require.NoError(t, err)
	require.Equal(t, models.AbsenceCount(0), roster.Students[0].AbsenceCount)
	require.Equal(t, models.DefaultModuleColor, roster.Modules[0].Color)
}
