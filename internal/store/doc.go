// Package store is the SQL persister behind a persistence context.
//
// A Store executes flush plans produced by session.PersistenceContext inside
// one database transaction: it commits when every action succeeded and rolls
// back otherwise. It also creates entity tables from schemas and loads rows
// into a session as MANAGED entities.
//
// # Drivers
//
//   - sqlite3: github.com/mattn/go-sqlite3 (default)
//   - sqlite:  modernc.org/sqlite, pure Go
//   - pgx:     github.com/jackc/pgx/v5/stdlib, PostgreSQL
//
// SQLite connections are configured like this:
//
//   - WAL mode for concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single open connection, one writer at a time
//
// # Generated keys
//
// An INSERT whose primary key is Null omits the key column. SQLite reports the
// new key through LastInsertId, PostgreSQL through RETURNING. Generated keys
// require an integer key column.
//
// # Flush journal
//
// With the journal enabled every executed action appends a row to
// flush_journal in the same transaction: session id, kind, table, rendered
// identity key, the row as canonical JSON and its domain-separated SHA-256.
// The journal is ordered by seq and never rewritten.
package store
