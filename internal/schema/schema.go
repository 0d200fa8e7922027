package schema

import (
	"fmt"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Getter reads a field value from an entity.
type Getter func(entity any) (value.Value, error)

// Setter writes a field value into an entity.
type Setter func(entity any, v value.Value) error

// Field is one column of an entity type together with its accessors.
type Field struct {
	Column string
	Kind   value.Kind
	get    Getter
	set    Setter
}

// Readable reports whether the field has a getter.
func (f Field) Readable() bool { return f.get != nil }

// Writable reports whether the field has a setter.
func (f Field) Writable() bool { return f.set != nil }

// Read returns the field's current value on entity.
func (f Field) Read(entity any) (value.Value, error) {
	if f.get == nil {
		return nil, fmt.Errorf("read %s: %w", f.Column, ErrNotReadable)
	}
	v, err := f.get(entity)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Column, err)
	}
	if v == nil {
		return value.Null{}, nil
	}
	return v, nil
}

// Write assigns v to the field on entity, coercing it to the column kind.
func (f Field) Write(entity any, v value.Value) error {
	if f.set == nil {
		return fmt.Errorf("write %s: %w", f.Column, ErrNotWritable)
	}
	coerced, err := value.Coerce(f.Kind, v)
	if err != nil {
		return fmt.Errorf("write %s: %w: %v", f.Column, ErrKindMismatch, err)
	}
	if err := f.set(entity, coerced); err != nil {
		return fmt.Errorf("write %s: %w", f.Column, err)
	}
	return nil
}

// Schema is the structural description of one entity type.
//
// Schemas are immutable after Build and safe to share between sessions.
type Schema struct {
	typ     string
	table   string
	key     Field
	columns []Field // Non-key columns in declaration order
	index   map[string]int
}

// Type returns the entity type name, the first half of every identity key.
func (s *Schema) Type() string { return s.typ }

// Table returns the backing table name.
func (s *Schema) Table() string { return s.table }

// Key returns the primary-key field.
func (s *Schema) Key() Field { return s.key }

// Columns returns the non-key columns in declaration order.
func (s *Schema) Columns() []Field {
	out := make([]Field, len(s.columns))
	copy(out, s.columns)
	return out
}

// Fields returns the snapshot layout: the primary key first, then every
// readable column in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.columns)+1)
	out = append(out, s.key)
	for _, c := range s.columns {
		if c.Readable() {
			out = append(out, c)
		}
	}
	return out
}

// Field looks up a field (key or column) by column name.
func (s *Schema) Field(column string) (Field, bool) {
	if column == s.key.Column {
		return s.key, true
	}
	i, ok := s.index[column]
	if !ok {
		return Field{}, false
	}
	return s.columns[i], true
}

// KeyOf reads the primary-key value of entity. An unassigned key is Null.
func (s *Schema) KeyOf(entity any) (value.Value, error) {
	return s.key.Read(entity)
}

// SetKey writes id into the primary-key field of entity.
func (s *Schema) SetKey(entity any, id value.Value) error {
	return s.key.Write(entity, id)
}

// String returns "Type(table)".
func (s *Schema) String() string {
	return fmt.Sprintf("%s(%s)", s.typ, s.table)
}

// build validates the collected fields and assembles a Schema.
// Shared by every binding path.
func build(typ, table string, fields []Field, keyColumn string) (*Schema, error) {
	if typ == "" {
		return nil, ErrEmptyType
	}
	if table == "" {
		return nil, fmt.Errorf("%s: %w", typ, ErrEmptyTable)
	}

	s := &Schema{typ: typ, table: table, index: make(map[string]int)}
	seen := make(map[string]bool, len(fields))
	haveKey := false

	for _, f := range fields {
		if f.Column == "" {
			return nil, fmt.Errorf("%s: column name must not be empty", typ)
		}
		if seen[f.Column] {
			return nil, fmt.Errorf("%s: %w: %s", typ, ErrDuplicateColumn, f.Column)
		}
		seen[f.Column] = true

		if !f.Readable() && !f.Writable() {
			return nil, fmt.Errorf("%s.%s: %w", typ, f.Column, ErrNoAccessor)
		}

		if f.Column == keyColumn {
			if !f.Readable() || !f.Writable() {
				return nil, fmt.Errorf("%s.%s: %w", typ, f.Column, ErrKeyNotWritable)
			}
			s.key = f
			haveKey = true
			continue
		}
		s.index[f.Column] = len(s.columns)
		s.columns = append(s.columns, f)
	}

	if !haveKey {
		return nil, fmt.Errorf("%s: %w", typ, ErrNoPrimaryKey)
	}
	return s, nil
}
