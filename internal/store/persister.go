package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// ErrRowNotFound is returned when an UPDATE, DELETE or load matched no row.
var ErrRowNotFound = errors.New("row not found")

// ErrGeneratedKey is returned when the store cannot assign a key for an
// INSERT with a Null key.
var ErrGeneratedKey = errors.New("cannot generate key")

var _ session.Persister = (*Store)(nil)

// Execute runs the actions in order inside one transaction and reports the
// keys assigned to inserts with a Null key. Any failure rolls the whole
// transaction back, journal rows included.
func (s *Store) Execute(ctx context.Context, actions []session.Action) ([]session.GeneratedKey, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin flush: %w", err)
	}
	defer tx.Rollback()

	sessionID, _ := session.IDFromContext(ctx)
	var generated []session.GeneratedKey

	for i, a := range actions {
		row := a.Row
		key := a.Key
		switch a.Kind {
		case session.ActionInsert:
			id, err := s.insert(ctx, tx, a)
			if err != nil {
				return nil, fmt.Errorf("action %d %s: %w", i, a, err)
			}
			if id != nil {
				generated = append(generated, session.GeneratedKey{Entity: a.Entity, ID: id})
				row = append(session.Snapshot{id}, row[1:]...)
				key = session.NewKey(key.Type, id)
			}
		case session.ActionUpdate:
			if err := s.update(ctx, tx, a); err != nil {
				return nil, fmt.Errorf("action %d %s: %w", i, a, err)
			}
		case session.ActionDelete:
			if err := s.delete(ctx, tx, a); err != nil {
				return nil, fmt.Errorf("action %d %s: %w", i, a, err)
			}
		default:
			return nil, fmt.Errorf("action %d: unknown kind %q", i, a.Kind)
		}

		if s.journal {
			entry := JournalEntry{
				SessionID: sessionID,
				Kind:      string(a.Kind),
				Table:     a.Schema.Table(),
				Key:       key.String(),
			}
			if err := s.appendJournal(ctx, tx, entry, row.Object(a.Schema)); err != nil {
				return nil, fmt.Errorf("action %d %s: %w", i, a, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit flush: %w", err)
	}
	s.log.Debug("flush committed", "session", sessionID, "actions", len(actions), "generated_keys", len(generated))
	return generated, nil
}

// insert writes a full row. With a Null key the key column is omitted and the
// assigned key is returned.
func (s *Store) insert(ctx context.Context, tx *sql.Tx, a session.Action) (value.Value, error) {
	cols := a.Columns()
	vals := []value.Value(a.Row)
	generate := value.IsNull(a.Row[0])
	keyCol := a.Schema.Key()
	if generate {
		if keyCol.Kind != value.KindInt && keyCol.Kind != value.KindAny {
			return nil, fmt.Errorf("%w: key column %s is %s", ErrGeneratedKey, keyCol.Column, keyCol.Kind)
		}
		cols, vals = cols[1:], vals[1:]
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		marks[i] = s.dialect.placeholder(i + 1)
		args[i] = s.dialect.toDriver(vals[i])
	}

	var stmt string
	table := quote(a.Schema.Table())
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	}

	s.log.Debug("exec", "sql", stmt)
	if !generate {
		_, err := tx.ExecContext(ctx, stmt, args...)
		return nil, err
	}

	if s.dialect.returning {
		var raw any
		if err := tx.QueryRowContext(ctx, stmt+" RETURNING "+quote(keyCol.Column), args...).Scan(&raw); err != nil {
			return nil, err
		}
		return fromDriver(raw, keyCol.Kind)
	}

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneratedKey, err)
	}
	return value.Int(id), nil
}

func (s *Store) update(ctx context.Context, tx *sql.Tx, a session.Action) error {
	cols := a.Columns()
	if len(cols) < 2 {
		return nil
	}
	sets := make([]string, 0, len(cols)-1)
	args := make([]any, 0, len(cols))
	for i := 1; i < len(cols); i++ {
		sets = append(sets, quote(cols[i])+" = "+s.dialect.placeholder(i))
		args = append(args, s.dialect.toDriver(a.Row[i]))
	}
	args = append(args, s.dialect.toDriver(a.Key.ID))

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quote(a.Schema.Table()), strings.Join(sets, ", "),
		quote(cols[0]), s.dialect.placeholder(len(cols)))
	s.log.Debug("exec", "sql", stmt)

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) delete(ctx context.Context, tx *sql.Tx, a session.Action) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		quote(a.Schema.Table()), quote(a.Schema.Key().Column), s.dialect.placeholder(1))
	s.log.Debug("exec", "sql", stmt)

	res, err := tx.ExecContext(ctx, stmt, s.dialect.toDriver(a.Key.ID))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRowNotFound
	}
	return nil
}
