package schema

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// LoadError describes a problem in a CUE entity description.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadDescriptors loads every entity description from the CUE package in dir.
//
// The expected shape is
//
//	entity: User: {
//	    table: "users"
//	    key:   "id"
//	    columns: [
//	        {name: "id", kind: "int"},
//	        {name: "name", kind: "string"},
//	        {name: "created", kind: "time", readonly: true},
//	    ]
//	}
//
// Descriptors are returned sorted by type name.
func LoadDescriptors(dir string) ([]Descriptor, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	return DescriptorsFromValue(v)
}

// ParseDescriptors compiles CUE source text and extracts its descriptors.
func ParseDescriptors(src string) ([]Descriptor, error) {
	v := cuecontext.New().CompileString(src)
	return DescriptorsFromValue(v)
}

// DescriptorsFromValue extracts descriptors from the "entity" struct of v.
func DescriptorsFromValue(v cue.Value) ([]Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	entities := v.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return nil, &LoadError{Field: "entity", Message: "no entity definitions found", Pos: v.Pos()}
	}

	iter, err := entities.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []Descriptor
	for iter.Next() {
		d, err := compileDescriptor(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func compileDescriptor(name string, v cue.Value) (Descriptor, error) {
	d := Descriptor{Type: name}

	table, err := requiredString(v, "table", name)
	if err != nil {
		return d, err
	}
	d.Table = table

	key, err := requiredString(v, "key", name)
	if err != nil {
		return d, err
	}
	d.Key = key

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return d, &LoadError{Field: name + ".columns", Message: "columns is required", Pos: v.Pos()}
	}
	list, err := colsVal.List()
	if err != nil {
		return d, formatCUEError(err)
	}
	for list.Next() {
		c, err := compileColumn(name, list.Value())
		if err != nil {
			return d, err
		}
		d.Columns = append(d.Columns, c)
	}

	if _, ok := d.Column(d.Key); !ok {
		return d, &LoadError{
			Field:   name + ".key",
			Message: fmt.Sprintf("key %q is not a declared column", d.Key),
			Pos:     v.Pos(),
		}
	}
	return d, nil
}

func compileColumn(entity string, v cue.Value) (ColumnDescriptor, error) {
	var c ColumnDescriptor

	colName, err := requiredString(v, "name", entity+".columns")
	if err != nil {
		return c, err
	}
	c.Name = colName

	field := entity + "." + colName
	kindName, err := requiredString(v, "kind", field)
	if err != nil {
		return c, err
	}
	kind, err := value.ParseKind(kindName)
	if err != nil {
		return c, &LoadError{Field: field + ".kind", Message: err.Error(), Pos: v.Pos()}
	}
	c.Kind = kind

	if ro := v.LookupPath(cue.ParsePath("readonly")); ro.Exists() {
		b, err := ro.Bool()
		if err != nil {
			return c, formatCUEError(err)
		}
		c.ReadOnly = b
	}
	if gf := v.LookupPath(cue.ParsePath("field")); gf.Exists() {
		s, err := gf.String()
		if err != nil {
			return c, formatCUEError(err)
		}
		c.Field = s
	}
	return c, nil
}

func requiredString(v cue.Value, path, owner string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", &LoadError{Field: owner + "." + path, Message: path + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &LoadError{Field: owner + "." + path, Message: path + " must not be empty", Pos: f.Pos()}
	}
	return s, nil
}

// formatCUEError keeps the first CUE error with its source position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
