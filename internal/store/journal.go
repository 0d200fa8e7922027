package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// JournalEntry is one row of the flush journal.
type JournalEntry struct {
	Seq       int64
	SessionID string
	Kind      string
	Table     string
	Key       string
	Row       string // Canonical JSON
	Digest    string
}

// Verify recomputes the row digest and reports a mismatch.
func (e JournalEntry) Verify() error {
	if got := value.Digest(value.DomainRow, []byte(e.Row)); got != e.Digest {
		return fmt.Errorf("journal entry %d: digest mismatch: stored %s, computed %s", e.Seq, e.Digest, got)
	}
	return nil
}

func (s *Store) appendJournal(ctx context.Context, tx *sql.Tx, e JournalEntry, row value.Object) error {
	data, err := value.MarshalCanonical(row)
	if err != nil {
		return fmt.Errorf("journal row: %w", err)
	}
	e.Row = string(data)
	e.Digest = value.Digest(value.DomainRow, data)

	p := s.dialect.placeholder
	stmt := fmt.Sprintf(`
		INSERT INTO flush_journal (session_id, kind, table_name, entity_key, row_json, digest)
		VALUES (%s, %s, %s, %s, %s, %s)
	`, p(1), p(2), p(3), p(4), p(5), p(6))
	if _, err := tx.ExecContext(ctx, stmt, e.SessionID, e.Kind, e.Table, e.Key, e.Row, e.Digest); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

// ReadJournal returns journal entries ordered by seq. An empty sessionID
// returns the entries of every session.
//
// Returns an empty slice (not nil) when nothing was journaled.
func (s *Store) ReadJournal(ctx context.Context, sessionID string) ([]JournalEntry, error) {
	query := `
		SELECT seq, session_id, kind, table_name, entity_key, row_json, digest
		FROM flush_journal`
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = " + s.dialect.placeholder(1)
		args = append(args, sessionID)
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.Seq, &e.SessionID, &e.Kind, &e.Table, &e.Key, &e.Row, &e.Digest); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}
