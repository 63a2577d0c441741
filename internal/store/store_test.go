package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtmsg/internal/ir"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, _ := openTemp(t)
	return s
}

func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var v string
	require.NoError(t, s.db.QueryRow("PRAGMA "+name).Scan(&v))
	return v
}

func TestOpen_CreatesFile(t *testing.T) {
	_, path := openTemp(t)
	assert.FileExists(t, path)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	s, path := openTemp(t)
	sess, err := s.StartSession(t.Context(), "/talker")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for range 3 {
		again, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, again.Close())
	}

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	sessions, err := again.Sessions(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)
	assert.Equal(t, "2", pragma(t, again, "user_version"))
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no", "such", "log.db"))
	assert.Error(t, err)
}

func TestClose_ZeroStore(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestOpen_ConnectionPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, "wal", pragma(t, s, "journal_mode"))
	assert.Equal(t, "1", pragma(t, s, "synchronous")) // NORMAL
	assert.Equal(t, "5000", pragma(t, s, "busy_timeout"))
	assert.Equal(t, "1", pragma(t, s, "foreign_keys"))
}

func TestOpen_Schema(t *testing.T) {
	s := createTestStore(t)

	var cols []string
	rows, err := s.db.Query("SELECT name FROM pragma_table_info('messages')")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var c string
		require.NoError(t, rows.Scan(&c))
		cols = append(cols, c)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{
		"seq", "session_id", "topic", "type_name",
		"payload", "values_json", "content_hash",
	}, cols)

	var idx string
	require.NoError(t, s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_messages_session_topic'",
	).Scan(&idx))
}

func TestOpen_MigratesV0Log(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`
		CREATE TABLE sessions (id TEXT PRIMARY KEY, node TEXT NOT NULL, started_at INTEGER NOT NULL);
		CREATE TABLE messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			topic TEXT NOT NULL, type_name TEXT NOT NULL, payload BLOB NOT NULL,
			values_json TEXT NOT NULL, content_hash TEXT NOT NULL
		);
		INSERT INTO sessions VALUES ('old', '/talker', 1);
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "2", pragma(t, s, "user_version"))

	var n int
	require.NoError(t, s.db.QueryRow(
		"SELECT count(*) FROM sqlite_master WHERE type='index' AND name='idx_messages_session_topic'",
	).Scan(&n))
	assert.Equal(t, 1, n)

	sessions, err := s.Sessions(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "old", sessions[0].ID)
	assert.Empty(t, sessions[0].WireVersion)

	sess, err := s.StartSession(t.Context(), "/listener")
	require.NoError(t, err)
	assert.Equal(t, ir.WireVersion, sess.WireVersion)
}

func TestSession_ForeignKey(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteMessage(t.Context(), Message{
		SessionID: "missing",
		Topic:     "/chatter",
		TypeName:  "std_msgs/String",
	})
	assert.Error(t, err)
}
