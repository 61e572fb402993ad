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

// catalogDir is the catalog shipped with the repository.
var catalogDir = filepath.Join("..", "..", "catalog")

// writeCatalog writes a one-file catalog into a temp directory.
func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte("package catalog\n\n"+content), 0644))
	return dir
}

func executeValidate(t *testing.T, format string, dir string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateShippedCatalog(t *testing.T) {
	out, err := executeValidate(t, "text", catalogDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid (7 kernels, 3 devices)")
	assert.NotContains(t, out, "warning")
}

func TestValidateShippedCatalogJSON(t *testing.T) {
	out, err := executeValidate(t, "json", catalogDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 7, resp.Data.Kernels)
	assert.Equal(t, 3, resp.Data.Devices)
	assert.Empty(t, resp.Data.Findings)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := executeValidate(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := executeValidate(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E003")
}

func TestValidateSchemaError(t *testing.T) {
	dir := writeCatalog(t, `kernel: broken: args: [{name: "dst", kind: "pointer"}]`)

	out, err := executeValidate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E007")
}

func TestValidateStructuralErrors(t *testing.T) {
	dir := writeCatalog(t, `
kernel: copy: args: [
	{name: "dst", kind: "buffer"},
	{name: "dst", kind: "buffer"},
]
device: full: mutations: ["ArgumentValues"]
`)

	out, err := executeValidate(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E104", resp.Error.Code)
}

func TestValidateWarningsDoNotFail(t *testing.T) {
	dir := writeCatalog(t, `
kernel: mystery: args: [{name: "dst", kind: "buffer"}]
device: inert: mutations: []
`)

	out, err := executeValidate(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid (1 kernels, 1 devices)")
	assert.Contains(t, out, "warning E106 kernel.mystery")
	assert.Contains(t, out, "warning E111 device.inert.mutations")
}

func TestValidateHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "catalog-dir")
	assert.Contains(t, buf.String(), "warnings")
}
