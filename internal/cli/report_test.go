package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steady/internal/store"
)

func TestReportCommandMissingDB(t *testing.T) {
	_, err := runCLI(t, "report", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestReportCommandEmptyDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "events.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runCLI(t, "report", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Report: 0 passed, 0 failed, 0 running, 0 total")
}

func TestReportCommandJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"greet.yaml": passingScenario})
	db := filepath.Join(t.TempDir(), "events.db")
	_, err := runCLI(t, "test", dir, "--db", db)
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "report", db)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   store.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Tests, 1)
	assert.Equal(t, "test-greet", resp.Data.Tests[0].TestID)
	assert.Equal(t, store.OutcomePass, resp.Data.Tests[0].Outcome)
	assert.Equal(t, 1, resp.Data.Tests[0].Checks)
}
