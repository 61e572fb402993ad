package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesJournalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"buffers", "journal"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
	var count int
	assert.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM journal").Scan(&count))
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no", "such", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close(), "zero Store")

	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestDB_IsUsable(t *testing.T) {
	s := createTestStore(t)
	require.NotNil(t, s.DB())
	assert.NoError(t, s.DB().Ping())
}

func TestOpen_AppliesConnectionPragmas(t *testing.T) {
	s := createTestStore(t)

	for _, p := range connectionPragmas {
		assert.NoError(t, s.verifyPragma(p.name, p.reads))
	}
	assert.Error(t, s.verifyPragma("journal_mode", "delete"))
}
func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	assert.Subset(t, columnNames(t, s.db, "buffers"),
		[]string{"id", "device", "engine_version", "payload_version"})
	assert.Subset(t, columnNames(t, s.db, "journal"),
		[]string{"buffer_id", "seq", "op", "command_id", "payload", "payload_hash", "error_code"})
}

func TestSchema_JournalNeedsKnownBuffer(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO journal (buffer_id, seq, op, payload, payload_hash)
		VALUES ('ghost', 1, 'open', '{}', 'x')`)
	assert.Error(t, err, "journal row for an unknown buffer")
}

func TestMigrate_FreshJournalIsCurrent(t *testing.T) {
	s := createTestStore(t)
	assert.Equal(t, currentSchemaVersion, userVersion(t, s.db))
}

func TestMigrate_AddsCommandIndexToOldJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	// Journals written before the command index existed.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE buffers (id TEXT PRIMARY KEY, device TEXT NOT NULL DEFAULT '',
			engine_version TEXT NOT NULL, payload_version TEXT NOT NULL);
		CREATE TABLE journal (buffer_id TEXT NOT NULL REFERENCES buffers(id), seq INTEGER NOT NULL,
			op TEXT NOT NULL, command_id INTEGER NOT NULL DEFAULT 0, payload TEXT NOT NULL,
			payload_hash TEXT NOT NULL, error_code TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (buffer_id, seq));
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, currentSchemaVersion, userVersion(t, s.db))
	assert.Contains(t, indexNames(t, s.db, "journal"), "idx_journal_command")
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&v))
	return v
}

func columnNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM pragma_table_info(?)", table)
}

func indexNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
}

func queryStrings(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}
