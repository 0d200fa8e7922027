package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
)

type note struct {
	ID      int64     `db:"id,pk"`
	Title   string    `db:"title"`
	Stars   *float64  `db:"stars"`
	Done    bool      `db:"done"`
	Created time.Time `db:"created"`
	Blob    []byte    `db:"blob"`
}

var noteSchema = schema.MustBind[note]("Note", "notes")

type tag struct {
	Name  string `db:"name,pk"`
	Color string `db:"color"`
}

var tagSchema = schema.MustBind[tag]("Tag", "tags")

// createTestStore opens a file-backed sqlite3 store with the fixture tables.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return createTestStoreWith(t, DriverSQLite3, opts...)
}

func createTestStoreWith(t *testing.T, driver string, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(driver, path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := t.Context()
	require.NoError(t, s.CreateTable(ctx, noteSchema))
	require.NoError(t, s.CreateTable(ctx, tagSchema))
	return s
}

func newSession(t *testing.T, id string) *session.PersistenceContext {
	t.Helper()
	return session.New(
		session.WithSessionID(id),
		session.WithTokenGenerator(session.NewSequenceGenerator("tmp")),
	)
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+quote(table)).Scan(&n))
	return n
}

// postgresDSN returns the DSN for live PostgreSQL tests, skipping when unset.
func postgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MINIHIB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MINIHIB_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return ts
}
