package schema

import (
	"fmt"
	"reflect"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Descriptor is a binding-independent description of an entity type.
// LoadDescriptors produces them from CUE files.
type Descriptor struct {
	Type    string
	Table   string
	Key     string
	Columns []ColumnDescriptor
}

// ColumnDescriptor describes one column.
type ColumnDescriptor struct {
	Name     string
	Kind     value.Kind
	ReadOnly bool
	// Field names the Go struct field for BindDescriptor. Empty means match
	// by db tag or lower-cased field name.
	Field string
}

// Column returns the named column descriptor.
func (d Descriptor) Column(name string) (ColumnDescriptor, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// BindDescriptor binds d to Go struct fields of T.
func BindDescriptor[T any](d Descriptor) (*Schema, error) {
	var zero T
	st := reflect.TypeOf(zero)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s: %w: BindDescriptor needs a struct type, got %v", d.Type, ErrUnsupportedType, st)
	}

	byColumn := make(map[string]int)
	byName := make(map[string]int)
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		column, _, skip := parseTag(sf)
		if skip {
			continue
		}
		byColumn[column] = i
		byName[sf.Name] = i
	}

	fields := make([]Field, 0, len(d.Columns))
	for _, c := range d.Columns {
		var (
			index int
			ok    bool
		)
		if c.Field != "" {
			index, ok = byName[c.Field]
		} else {
			index, ok = byColumn[c.Name]
		}
		if !ok {
			return nil, fmt.Errorf("%s.%s: %w: no matching field on %T", d.Type, c.Name, ErrUnknownColumn, zero)
		}

		kind, err := kindOf(st.Field(index).Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.Type, c.Name, err)
		}
		if c.Kind != value.KindAny && c.Kind != kind {
			return nil, fmt.Errorf("%s.%s: %w: declared %s, field is %s", d.Type, c.Name, ErrKindMismatch, c.Kind, kind)
		}

		f := Field{Column: c.Name, Kind: kind, get: reflectGetter[T](index)}
		if !c.ReadOnly {
			f.set = reflectSetter[T](index)
		}
		if c.Name == d.Key {
			f.get = zeroAsNull(f.get)
		}
		fields = append(fields, f)
	}
	return build(d.Type, d.Table, fields, d.Key)
}
