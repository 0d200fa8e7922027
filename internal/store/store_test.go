package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(DriverSQLite3, path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was created")
	assert.Equal(t, "sqlite", s.Dialect())
	assert.True(t, s.JournalEnabled())
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		s, err := Open(DriverSQLite3, path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			var got string
			require.NoError(t, s.DB().QueryRow("PRAGMA "+tt.pragma).Scan(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_JournalIndex(t *testing.T) {
	s := createTestStore(t)
	var name string
	err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_flush_journal_session'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_flush_journal_session", name)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestOpen_MemoryDatabase(t *testing.T) {
	s, err := Open(DriverSQLite3, ":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.CreateTable(t.Context(), noteSchema))
	assert.Equal(t, 0, countRows(t, s, "notes"))
}

func TestCreateTableSQL(t *testing.T) {
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "tags" (
    "name" TEXT PRIMARY KEY,
    "color" TEXT
)`, sqliteDialect.createTableSQL(tagSchema))

	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "notes" (
    "id" BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    "title" TEXT,
    "stars" DOUBLE PRECISION,
    "done" BOOLEAN,
    "created" TIMESTAMPTZ,
    "blob" BYTEA
)`, postgresDialect.createTableSQL(noteSchema))
}

func TestTableDDL(t *testing.T) {
	stmt, err := TableDDL(DriverSQLite, tagSchema)
	require.NoError(t, err)
	assert.Equal(t, sqliteDialect.createTableSQL(tagSchema), stmt)

	_, err = TableDDL("mysql", tagSchema)
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "?", sqliteDialect.placeholder(3))
	assert.Equal(t, "$3", postgresDialect.placeholder(3))
	assert.Equal(t, `"we""ird"`, quote(`we"ird`))
}

func TestSplitStatements(t *testing.T) {
	script := `-- comment
CREATE TABLE a (
    x INTEGER
);

CREATE INDEX i ON a(x);
SELECT 1`
	stmts := splitStatements(script)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (\n    x INTEGER\n);", stmts[0])
	assert.Equal(t, "CREATE INDEX i ON a(x);", stmts[1])
	assert.Equal(t, "SELECT 1", stmts[2])

	assert.Len(t, splitStatements(sqliteSchemaSQL), 1)
	assert.Len(t, splitStatements(postgresSchemaSQL), 2)
}

func TestFromDriver(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		kind value.Kind
		want value.Value
	}{
		{"null", nil, value.KindInt, value.Null{}},
		{"int", int64(5), value.KindInt, value.Int(5)},
		{"int as bool", int64(1), value.KindBool, value.Bool(true)},
		{"real", 2.5, value.KindFloat, value.Float(2.5)},
		{"int as float", int64(2), value.KindFloat, value.Float(2)},
		{"text", "hi", value.KindString, value.String("hi")},
		{"text bytes", []byte("hi"), value.KindString, value.String("hi")},
		{"blob", []byte{0, 1}, value.KindBytes, value.Bytes("\x00\x01")},
		{"rfc3339 text", "2024-01-02T03:04:05Z", value.KindTime, value.NewTime(mustTime(t, "2024-01-02T03:04:05Z"))},
		{"bool", true, value.KindBool, value.Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromDriver(tt.raw, tt.kind)
			require.NoError(t, err)
			assert.True(t, value.Equal(tt.want, got), "want %s, got %s", value.Format(tt.want), value.Format(got))
		})
	}

	_, err := fromDriver("abc", value.KindInt)
	assert.Error(t, err)
}

func TestToDriver(t *testing.T) {
	ts := value.NewTime(mustTime(t, "2024-01-02T03:04:05.5Z"))
	assert.Equal(t, "2024-01-02T03:04:05.5Z", sqliteDialect.toDriver(ts))
	assert.Nil(t, sqliteDialect.toDriver(value.Null{}))
	assert.Equal(t, []byte("ab"), sqliteDialect.toDriver(value.Bytes("ab")))
	assert.Equal(t, int64(3), postgresDialect.toDriver(value.Int(3)))
}
