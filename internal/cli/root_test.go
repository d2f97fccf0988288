package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/seed"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "rosterctl", cmd.Use)

	for _, name := range []string{"seed", "reset", "import", "export", "stats"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	output := exportCmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "true", exportCmd.Flags().Lookup("grades").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "seed", "--format", "xml", "--path", filepath.Join(t.TempDir(), "roster.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSeedStatsAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")

	out, err := execute(t, "seed", "--path", path, "--format", "json")
	require.NoError(t, err)
	var response struct {
		Status string         `json:"status"`
		Data   dto.SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Data.Seeded)
	assert.Equal(t, 15, response.Data.Students)

	out, err = execute(t, "seed", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already populated")

	out, err = execute(t, "stats", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "15 students, 4 modules, 9 projects")

	out, err = execute(t, "reset", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "15 students, 4 modules, 9 projects written")
}

func TestStatsAsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	_, err := execute(t, "seed", "--path", path)
	require.NoError(t, err)

	out, err := execute(t, "stats", "--path", path, "--format", "yaml")
	require.NoError(t, err)

	var response struct {
		Status string                 `yaml:"status"`
		Data   map[string]interface{} `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 15, response.Data["total_students"])
	assert.Contains(t, response.Data, "status_distribution")
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.db")

	roster, err := seed.Default()
	require.NoError(t, err)
	roster.Students = roster.Students[:2]
	roster.Projects = roster.Projects[:0]
	document, err := json.Marshal(roster)
	require.NoError(t, err)
	docPath := filepath.Join(dir, "roster.json")
	require.NoError(t, os.WriteFile(docPath, document, 0o600))

	out, err := execute(t, "import", docPath, "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 students, 4 modules, 0 projects written")

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"students":[]}`), 0o600))
	_, err = execute(t, "import", invalid, "--path", path)
	require.ErrorIs(t, err, seed.ErrInvalidRoster)

	_, err = execute(t, "import", filepath.Join(dir, "missing.json"), "--path", path)
	require.Error(t, err)
}

func TestExportCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.db")
	_, err := execute(t, "seed", "--path", path)
	require.NoError(t, err)

	target := filepath.Join(dir, "promo")
	out, err := execute(t, "export", "xlsx", "-o", target, "--grades=false", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "promo.xlsx")

	content, err := os.ReadFile(target + ".xlsx")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("PK")))

	_, err = execute(t, "export", "docx", "--path", path)
	require.Error(t, err)
}
