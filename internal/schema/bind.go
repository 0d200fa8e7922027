package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

var timeType = reflect.TypeOf(time.Time{})

// Bind derives a schema for *T from struct tags.
//
// Tag syntax is `db:"column[,pk][,readonly]"`. Fields tagged "-" or untagged
// unexported fields are skipped; untagged exported fields use their
// lower-cased name as the column. Pointer fields map to nullable columns.
//
// Supported field types: bool, signed and unsigned integers, float32/64,
// string, []byte, time.Time, and pointers to any of these.
//
// A primary key holding its type's zero value (0, "") reads as Null, marking
// the entity as not yet inserted.
func Bind[T any](typ, table string) (*Schema, error) {
	var zero T
	st := reflect.TypeOf(zero)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s: %w: Bind needs a struct type, got %v", typ, ErrUnsupportedType, st)
	}

	var fields []Field
	key := ""
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		column, opts, skip := parseTag(sf)
		if skip {
			continue
		}
		kind, err := kindOf(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ, sf.Name, err)
		}

		f := Field{Column: column, Kind: kind, get: reflectGetter[T](i)}
		if !opts.readonly {
			f.set = reflectSetter[T](i)
		}
		if opts.pk {
			if key != "" {
				return nil, fmt.Errorf("%s: %w", typ, ErrMultipleKeys)
			}
			key = column
			f.get = zeroAsNull(f.get)
		}
		fields = append(fields, f)
	}
	return build(typ, table, fields, key)
}

// MustBind is like Bind but panics on error.
func MustBind[T any](typ, table string) *Schema {
	s, err := Bind[T](typ, table)
	if err != nil {
		panic(err)
	}
	return s
}

type tagOptions struct {
	pk       bool
	readonly bool
}

func parseTag(sf reflect.StructField) (column string, opts tagOptions, skip bool) {
	tag, tagged := sf.Tag.Lookup("db")
	if tag == "-" {
		return "", opts, true
	}
	if !sf.IsExported() {
		return "", opts, true
	}
	parts := strings.Split(tag, ",")
	column = parts[0]
	if !tagged || column == "" {
		column = strings.ToLower(sf.Name)
	}
	for _, p := range parts[1:] {
		switch strings.TrimSpace(p) {
		case "pk":
			opts.pk = true
		case "readonly":
			opts.readonly = true
		}
	}
	return column, opts, false
}

func kindOf(t reflect.Type) (value.Kind, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return value.KindTime, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return value.KindBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.KindInt, nil
	case reflect.Float32, reflect.Float64:
		return value.KindFloat, nil
	case reflect.String:
		return value.KindString, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return value.KindBytes, nil
		}
	}
	return value.KindAny, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
}

// zeroAsNull maps an unassigned key (0 or "") to Null.
func zeroAsNull(get Getter) Getter {
	return func(entity any) (value.Value, error) {
		v, err := get(entity)
		if err != nil {
			return nil, err
		}
		switch v {
		case value.Int(0), value.String(""):
			return value.Null{}, nil
		}
		return v, nil
	}
}

func reflectGetter[T any](index int) Getter {
	return func(entity any) (value.Value, error) {
		e, err := cast[T](entity)
		if err != nil {
			return nil, err
		}
		fv := reflect.ValueOf(e).Elem().Field(index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				return value.Null{}, nil
			}
			fv = fv.Elem()
		}
		return readReflect(fv)
	}
}

func readReflect(fv reflect.Value) (value.Value, error) {
	if fv.Type() == timeType {
		return value.NewTime(fv.Interface().(time.Time)), nil
	}
	switch fv.Kind() {
	case reflect.Bool:
		return value.Bool(fv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(fv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Of(fv.Uint())
	case reflect.Float32, reflect.Float64:
		return value.Float(fv.Float()), nil
	case reflect.String:
		return value.String(fv.String()), nil
	case reflect.Slice:
		if fv.IsNil() {
			return value.Null{}, nil
		}
		return value.NewBytes(fv.Bytes()), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, fv.Type())
}

func reflectSetter[T any](index int) Setter {
	return func(entity any, v value.Value) error {
		e, err := cast[T](entity)
		if err != nil {
			return err
		}
		fv := reflect.ValueOf(e).Elem().Field(index)
		if value.IsNull(v) {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		if fv.Kind() == reflect.Pointer {
			target := reflect.New(fv.Type().Elem())
			if err := writeReflect(target.Elem(), v); err != nil {
				return err
			}
			fv.Set(target)
			return nil
		}
		return writeReflect(fv, v)
	}
}

func writeReflect(fv reflect.Value, v value.Value) error {
	switch x := v.(type) {
	case value.Time:
		if fv.Type() == timeType {
			fv.Set(reflect.ValueOf(time.Time(x)))
			return nil
		}
	case value.Bool:
		if fv.Kind() == reflect.Bool {
			fv.SetBool(bool(x))
			return nil
		}
	case value.Int:
		switch fv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if fv.OverflowInt(int64(x)) {
				return fmt.Errorf("%w: %d overflows %v", ErrKindMismatch, int64(x), fv.Type())
			}
			fv.SetInt(int64(x))
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if x < 0 || fv.OverflowUint(uint64(x)) {
				return fmt.Errorf("%w: %d overflows %v", ErrKindMismatch, int64(x), fv.Type())
			}
			fv.SetUint(uint64(x))
			return nil
		}
	case value.Float:
		if fv.Kind() == reflect.Float32 || fv.Kind() == reflect.Float64 {
			fv.SetFloat(float64(x))
			return nil
		}
	case value.String:
		if fv.Kind() == reflect.String {
			fv.SetString(string(x))
			return nil
		}
	case value.Bytes:
		if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.Uint8 {
			fv.SetBytes([]byte(x))
			return nil
		}
	}
	return fmt.Errorf("%w: cannot assign %s to %v", ErrKindMismatch, v.Kind(), fv.Type())
}
