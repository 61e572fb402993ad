package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeReplay(t *testing.T, format string, verbose bool, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: format, Verbose: verbose})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// tamper rewrites one stored payload hash behind the store's back.
func tamper(t *testing.T, dbPath, buffer string, seq int) {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	res, err := db.Exec(`UPDATE journal SET payload_hash = 'forged' WHERE buffer_id = ? AND seq = ?`, buffer, seq)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestReplayAllBuffers(t *testing.T) {
	db := seedDatabase(t, "resubmit_timestamps", "cross_buffer_wait")

	out, err := executeReplay(t, "text", false, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 3 buffer(s)")
	assert.Contains(t, out, "✓ Buffer: seed/main\n  Entries: 9, commands: 1\n")
	assert.Contains(t, out, "✓ Buffer: seed/consumer")
	assert.Contains(t, out, "✓ All journals verified")
}

func TestReplaySingleBufferVerbose(t *testing.T) {
	db := seedDatabase(t, "resubmit_timestamps")

	out, err := executeReplay(t, "text", true, "--db", db, "seed/main")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 buffer(s)")
	assert.Contains(t, out, "Entries:  9 (0 failed)")
	assert.Contains(t, out, "Closed:   true")
	assert.Contains(t, out, "Dirty:    false")
}

func TestReplayJSON(t *testing.T) {
	db := seedDatabase(t, "request_id_errors")

	out, err := executeReplay(t, "json", false, "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllVerified)
	failed := 0
	for _, b := range resp.Data.Buffers {
		assert.True(t, b.Consistent)
		assert.True(t, b.Deterministic)
		failed += b.Failed
	}
	assert.Equal(t, 8, failed, "failed entries are journaled and still replay cleanly")
}

func TestReplayDetectsTampering(t *testing.T) {
	db := seedDatabase(t, "resubmit_timestamps")
	tamper(t, db, "seed/main", 3)

	out, err := executeReplay(t, "text", false, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Buffer: seed/main")
	assert.Contains(t, out, "seq 3: payload hash mismatch")
	assert.Contains(t, out, "✗ Journal verification failed")
}

func TestReplayDetectsTamperingJSON(t *testing.T) {
	db := seedDatabase(t, "resubmit_timestamps")
	tamper(t, db, "seed/main", 5)

	out, err := executeReplay(t, "json", false, "--db", db, "seed/main")
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInconsistent, resp.Error.Code)
	require.Len(t, resp.Data.Buffers, 1)
	assert.False(t, resp.Data.Buffers[0].Consistent)
	assert.True(t, resp.Data.Buffers[0].Deterministic)
}

func TestReplayUnknownBuffer(t *testing.T) {
	db := seedDatabase(t)

	_, err := executeReplay(t, "text", false, "--db", db, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayEmptyDatabase(t *testing.T) {
	db := seedDatabase(t)

	out, err := executeReplay(t, "text", false, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No buffers found in database.")

	out, err = executeReplay(t, "json", false, "--db", db)
	require.NoError(t, err)
	var resp struct {
		Data ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.AllVerified)
	assert.Empty(t, resp.Data.Buffers)
}

func TestReplayHelpText(t *testing.T) {
	out, err := executeReplay(t, "text", false, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "payload hash")
	assert.Contains(t, out, "--db")
	assert.Contains(t, out, "buffer-id")
}
