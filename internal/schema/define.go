package schema

import (
	"fmt"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Builder binds explicit accessors for entities of type *T.
//
// Example:
//
//	users, err := schema.Define[User]("User", "users").
//	    Key("id", value.KindInt,
//	        func(u *User) value.Value { return value.Int(u.ID) },
//	        func(u *User, v value.Value) error { u.ID = int64(v.(value.Int)); return nil }).
//	    Column("name", value.KindString,
//	        func(u *User) value.Value { return value.String(u.Name) },
//	        func(u *User, v value.Value) error { u.Name = string(v.(value.String)); return nil }).
//	    Build()
//
// Setters receive values already coerced to the declared kind, or Null.
type Builder[T any] struct {
	typ    string
	table  string
	key    string
	fields []Field
	err    error
}

// Define starts a schema for entities of type *T.
func Define[T any](typ, table string) *Builder[T] {
	return &Builder[T]{typ: typ, table: table}
}

// Key declares the primary-key column. Both accessors are required.
func (b *Builder[T]) Key(column string, kind value.Kind, get func(*T) value.Value, set func(*T, value.Value) error) *Builder[T] {
	if b.key != "" {
		b.err = fmt.Errorf("%s: %w", b.typ, ErrMultipleKeys)
		return b
	}
	b.key = column
	return b.Column(column, kind, get, set)
}

// Column declares a column. A nil get makes the field write-only, a nil set
// makes it read-only.
func (b *Builder[T]) Column(column string, kind value.Kind, get func(*T) value.Value, set func(*T, value.Value) error) *Builder[T] {
	f := Field{Column: column, Kind: kind}
	if get != nil {
		f.get = func(entity any) (value.Value, error) {
			e, err := cast[T](entity)
			if err != nil {
				return nil, err
			}
			return get(e), nil
		}
	}
	if set != nil {
		f.set = func(entity any, v value.Value) error {
			e, err := cast[T](entity)
			if err != nil {
				return err
			}
			return set(e, v)
		}
	}
	b.fields = append(b.fields, f)
	return b
}

// Build validates the declaration and returns the Schema.
func (b *Builder[T]) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	return build(b.typ, b.table, b.fields, b.key)
}

// MustBuild is like Build but panics on error.
// Intended for package-level schema variables.
func (b *Builder[T]) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func cast[T any](entity any) (*T, error) {
	e, ok := entity.(*T)
	if !ok || e == nil {
		var zero T
		return nil, fmt.Errorf("%w: want *%T, got %T", ErrEntityType, zero, entity)
	}
	return e, nil
}
