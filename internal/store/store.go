package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

//go:embed sql/sqlite.sql
var sqliteSchemaSQL string

//go:embed sql/postgres.sql
var postgresSchemaSQL string

// Schema version tracking:
// 0 - Initial flush_journal table
// 1 - Added index on flush_journal(session_id, seq)
const currentSchemaVersion = 1

// Store is a SQL-backed session.Persister.
type Store struct {
	db      *sql.DB
	dialect dialect
	journal bool
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithJournal enables or disables the flush journal. Default: enabled.
func WithJournal(enabled bool) Option {
	return func(s *Store) { s.journal = enabled }
}

// WithLogger sets the logger for executed statements. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open connects to the database and applies the journal schema and
// migrations. driver is one of DriverSQLite3, DriverSQLite or DriverPostgres;
// for SQLite dsn is a file path or ":memory:".
//
// This function is idempotent - safe to call multiple times on one database.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.sqlite {
		// SQLite supports one writer at a time. A single connection also keeps
		// a ":memory:" database alive for the lifetime of the Store.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, dialect: d, journal: true, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return s.dialect.name
}

// JournalEnabled reports whether executed actions are journaled.
func (s *Store) JournalEnabled() bool {
	return s.journal
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) applySchema() error {
	script := sqliteSchemaSQL
	if !s.dialect.sqlite {
		script = postgresSchemaSQL
	}
	for _, stmt := range splitStatements(script) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on the stored version.
func (s *Store) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}

	if version < 1 {
		if err := s.migrateToV1(); err != nil {
			return err
		}
	}

	if version != currentSchemaVersion {
		return s.setSchemaVersion(currentSchemaVersion)
	}
	return nil
}

func (s *Store) migrateToV1() error {
	_, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flush_journal_session
		ON flush_journal(session_id, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	if s.dialect.sqlite {
		if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			return 0, fmt.Errorf("get user_version: %w", err)
		}
		return version, nil
	}
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM minihib_schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(v int) error {
	if s.dialect.sqlite {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		return nil
	}
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM minihib_schema_version"); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO minihib_schema_version (version) VALUES ($1)", v); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}
