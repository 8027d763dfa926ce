package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCubes(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestValidateValidCubes(t *testing.T) {
	dir := writeCubes(t, map[string]string{"orders.cue": ordersCUE})

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ 1 cube(s) valid in 1 file(s)")
	assert.Contains(t, buf.String(), "Orders: 2 measure(s), 3 dimension(s), 1 segment(s)")
}

func TestValidateValidCubesJSON(t *testing.T) {
	dir := writeCubes(t, map[string]string{"orders.cue": ordersCUE})

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []CubeSummary{{Name: "Orders", Measures: 2, Dimensions: 3, Segments: 1}}, resp.Data.Cubes)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	dir := writeCubes(t, map[string]string{
		"orders.cue": ordersCUE,
		"broken.cue": "package cubes\n\ncubes: Broken: measures: {x: \"money\"}\n",
		"empty.cue":  "package cubes\n\ncubes: Empty: {}\n",
	})

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 error(s)")
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "cubes.Broken")
	assert.Contains(t, buf.String(), "cubes.Empty")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "E005", resp.Error.Code)
}
