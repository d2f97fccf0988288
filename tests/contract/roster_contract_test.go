package contract_test

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/tests/testutil"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func decodePayload(t *testing.T, resp *http.Response) interface{} {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestRosterContracts(t *testing.T) {
	app := testutil.NewSQLiteApp(t)

	cases := []struct {
		name   string
		path   string
		schema string
	}{
		{name: "students", path: "/api/v1/students", schema: "student_list.schema.json"},
		{name: "projects", path: "/api/v1/projects?module_id=1", schema: "project_list.schema.json"},
		{name: "dashboard", path: "/api/v1/stats/dashboard", schema: "dashboard.schema.json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schema := compileSchema(t, tc.schema)
			resp := app.Do(t, http.MethodGet, tc.path, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.NoError(t, schema.Validate(decodePayload(t, resp)))
		})
	}
}

func TestRosterSnapshotContract(t *testing.T) {
	app := testutil.NewSQLiteApp(t)
	schema := compileSchema(t, "roster_snapshot.schema.json")

	resp := app.Do(t, http.MethodGet, "/api/v1/roster", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload, ok := decodePayload(t, resp).(map[string]interface{})
	require.True(t, ok)
	require.NoError(t, schema.Validate(payload["data"]))
}

func TestErrorEnvelopeContract(t *testing.T) {
	app := testutil.NewSQLiteApp(t)
	schema := compileSchema(t, "envelope.schema.json")

	for _, req := range []struct {
		method, path, body string
		status             int
	}{
		{method: http.MethodGet, path: "/api/v1/students/unknown", status: http.StatusNotFound},
		{method: http.MethodPost, path: "/api/v1/modules", body: `{"color":"red"}`, status: http.StatusBadRequest},
		{method: http.MethodPost, path: "/api/v1/admin/reset", status: http.StatusForbidden},
	} {
		resp := app.Do(t, req.method, req.path, req.body)
		require.Equal(t, req.status, resp.StatusCode, req.path)

		payload := decodePayload(t, resp)
		require.NoError(t, schema.Validate(payload))
		require.Equal(t, false, payload.(map[string]interface{})["success"])
	}
}
