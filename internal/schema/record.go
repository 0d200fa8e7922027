package schema

import (
	"maps"
	"slices"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Record is a dynamic entity: a named bag of column values.
//
// Records let descriptor-driven tools (the scenario harness, the CLI) manage
// entities without a Go struct per type. Use ForRecord to get a schema.
type Record struct {
	Type   string
	values map[string]value.Value
}

// NewRecord returns an empty record of the given type.
func NewRecord(typ string) *Record {
	return &Record{Type: typ, values: make(map[string]value.Value)}
}

// Get returns the value stored for column; absent columns read as Null.
func (r *Record) Get(column string) value.Value {
	if v, ok := r.values[column]; ok {
		return v
	}
	return value.Null{}
}

// Set stores v for column.
func (r *Record) Set(column string, v value.Value) {
	if r.values == nil {
		r.values = make(map[string]value.Value)
	}
	if v == nil {
		v = value.Null{}
	}
	r.values[column] = v
}

// Columns returns the set column names, sorted.
func (r *Record) Columns() []string {
	return slices.Sorted(maps.Keys(r.values))
}

// ForRecord builds a schema over *Record entities from d.
func ForRecord(d Descriptor) (*Schema, error) {
	fields := make([]Field, 0, len(d.Columns))
	for _, c := range d.Columns {
		column := c.Name
		f := Field{
			Column: column,
			Kind:   c.Kind,
			get: func(entity any) (value.Value, error) {
				r, err := cast[Record](entity)
				if err != nil {
					return nil, err
				}
				return r.Get(column), nil
			},
		}
		if !c.ReadOnly {
			f.set = func(entity any, v value.Value) error {
				r, err := cast[Record](entity)
				if err != nil {
					return err
				}
				r.Set(column, v)
				return nil
			}
		}
		fields = append(fields, f)
	}
	return build(d.Type, d.Table, fields, d.Key)
}
