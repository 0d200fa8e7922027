package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Load returns the entity of type sch with primary key id, attached to pc as
// MANAGED.
//
// id is converted to the key column's kind first, so value.String("1") and
// value.Int(1) name the same row of an integer-keyed table. When pc already
// tracks an instance under that key it is returned as is and
// the database is not queried, so one session never sees two instances of
// the same row. Otherwise newEntity allocates the instance that the row is
// written into.
func (s *Store) Load(ctx context.Context, pc *session.PersistenceContext, sch *schema.Schema, id value.Value, newEntity func() any) (any, error) {
	keyArg, err := value.Coerce(sch.Key().Kind, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sch.Type(), err)
	}
	if existing, ok := pc.Lookup(sch.Type(), keyArg); ok {
		return existing, nil
	}

	fields := loadFields(sch)
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		columnList(fields), quote(sch.Table()), quote(sch.Key().Column), s.dialect.placeholder(1))
	s.log.Debug("query", "sql", stmt)

	row := s.db.QueryRowContext(ctx, stmt, s.dialect.toDriver(keyArg))
	entity, err := s.scanEntity(row.Scan, fields, newEntity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", session.NewKey(sch.Type(), keyArg), ErrRowNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", session.NewKey(sch.Type(), keyArg), err)
	}

	if err := pc.Attach(entity, sch, session.StateManaged); err != nil {
		return nil, err
	}
	return entity, nil
}

// LoadAs is Load for struct entities of type T.
func LoadAs[T any](ctx context.Context, s *Store, pc *session.PersistenceContext, sch *schema.Schema, id value.Value) (*T, error) {
	entity, err := s.Load(ctx, pc, sch, id, func() any { return new(T) })
	if err != nil {
		return nil, err
	}
	typed, ok := entity.(*T)
	if !ok {
		var zero T
		return nil, fmt.Errorf("load %s: tracked instance is %T, not *%T", sch.Type(), entity, zero)
	}
	return typed, nil
}

// LoadAll loads every row of sch ordered by primary key. Rows already tracked
// by pc resolve to the tracked instance.
func (s *Store) LoadAll(ctx context.Context, pc *session.PersistenceContext, sch *schema.Schema, newEntity func() any) ([]any, error) {
	fields := loadFields(sch)
	stmt := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		columnList(fields), quote(sch.Table()), quote(sch.Key().Column))
	s.log.Debug("query", "sql", stmt)

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("load all %s: %w", sch.Type(), err)
	}
	defer rows.Close()

	out := []any{}
	for rows.Next() {
		entity, err := s.scanEntity(rows.Scan, fields, newEntity)
		if err != nil {
			return nil, fmt.Errorf("load all %s: %w", sch.Type(), err)
		}
		id, err := sch.KeyOf(entity)
		if err != nil {
			return nil, fmt.Errorf("load all %s: %w", sch.Type(), err)
		}
		if existing, ok := pc.Lookup(sch.Type(), id); ok {
			out = append(out, existing)
			continue
		}
		if err := pc.Attach(entity, sch, session.StateManaged); err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load all %s: %w", sch.Type(), err)
	}
	return out, nil
}

// loadFields returns the key followed by every writable column.
func loadFields(sch *schema.Schema) []schema.Field {
	fields := []schema.Field{sch.Key()}
	for _, c := range sch.Columns() {
		if c.Writable() {
			fields = append(fields, c)
		}
	}
	return fields
}

func columnList(fields []schema.Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quote(f.Column)
	}
	return strings.Join(cols, ", ")
}

func (s *Store) scanEntity(scan func(dest ...any) error, fields []schema.Field, newEntity func() any) (any, error) {
	raw := make([]any, len(fields))
	dest := make([]any, len(fields))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	entity := newEntity()
	for i, f := range fields {
		v, err := fromDriver(raw[i], f.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Column, err)
		}
		if err := f.Write(entity, v); err != nil {
			return nil, err
		}
	}
	return entity, nil
}
