package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCaps(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCapsCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCapsText(t *testing.T) {
	out, err := executeCaps(t, "text", catalogDir)
	require.NoError(t, err)

	assert.Contains(t, out, "args_only\n  supported:   ArgumentValues\n  default:     ArgumentValues\n  kernel swap: false\n")
	assert.Contains(t, out, "full\n")
	assert.Contains(t, out, "no_kernel_swap\n")
}

func TestCapsJSONSingleDevice(t *testing.T) {
	out, err := executeCaps(t, "json", catalogDir, "--device", "full")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []DeviceCaps `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)

	full := resp.Data[0]
	assert.Equal(t, "full", full.Device)
	assert.Len(t, full.Supported, 7)
	assert.True(t, full.KernelSwap)
	assert.NotContains(t, full.Default, "KernelInstruction", "an empty mask never grants kernel swaps")
	assert.Len(t, full.Default, 6)
}

func TestCapsUnknownDevice(t *testing.T) {
	out, err := executeCaps(t, "text", catalogDir, "--device", "gpu9000")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeUnknownDevice)
}

func TestCapsNoMutations(t *testing.T) {
	dir := writeCatalog(t, `device: inert: mutations: []`)

	out, err := executeCaps(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "supported:   None")
	assert.Contains(t, out, "default:     None")
}

func TestCapsMissingCatalog(t *testing.T) {
	_, err := executeCaps(t, "json", "/nonexistent/catalog")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
