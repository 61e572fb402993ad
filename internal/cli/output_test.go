package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"kernels": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"kernels": float64(3)}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"file": "kernels.cue", "line": "12"}
	require.NoError(t, formatter.Error("E007", "catalog does not match schema", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E007", resp.Error.Code)
	assert.Equal(t, "catalog does not match schema", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		details any
		want    []string
		notWant []string
	}{
		{"plain", false, nil, []string{"Error [E005]", "catalog directory not found"}, []string{"Details:"}},
		{"details_hidden", false, "x", []string{"Error [E005]"}, []string{"Details:"}},
		{"details_verbose", true, "x", []string{"Error [E005]", "Details: x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			require.NoError(t, formatter.Error("E005", "catalog directory not found", tt.details))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, buf.String(), w)
			}
		})
	}
}

func TestOutputFormatter_PrintfSilentInJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	(&OutputFormatter{Format: "json", Writer: buf}).Printf("hello %d\n", 1)
	assert.Empty(t, buf.String())

	(&OutputFormatter{Format: "text", Writer: buf}).Printf("hello %d\n", 1)
	assert.Equal(t, "hello 1\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			formatter.VerboseLog("loading %s", "kernels.cue")

			assert.Empty(t, out.String(), "diagnostics never go to stdout")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "loading kernels.cue")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetErrWriter_FallsBackToWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Writer: buf}
	assert.Same(t, buf, formatter.GetErrWriter())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"exit_failure", NewExitError(ExitFailure, "scenarios failed"), ExitFailure},
		{"command_error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped", fmt.Errorf("run: %w", WrapExitError(ExitCommandError, "open db", errors.New("locked"))), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	inner := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to open database", inner)
	assert.Equal(t, "failed to open database: no such file", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "bad", NewExitError(ExitFailure, "bad").Error())
}
