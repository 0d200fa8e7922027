package value

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	// KindAny is used by schemas for columns that accept every kind.
	KindAny Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTime
)

var kindNames = map[Kind]string{
	KindAny:    "any",
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindTime:   "time",
}

// String returns the lower-case kind name used in schema descriptors.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindAny, fmt.Errorf("unknown value kind %q", name)
}

// Value is a sealed interface over the column value types.
type Value interface {
	Kind() Kind
	value() // Sealed - only the types in this package implement it
}

// Null is the absent value. A nil Value is treated the same way by IsNull.
type Null struct{}

// Bool is a boolean column value.
type Bool bool

// Int is an integer column value. Always int64.
type Int int64

// Float is a floating point column value.
type Float float64

// String is a text column value.
type String string

// Bytes is a binary column value. Backed by string to stay comparable.
type Bytes string

// Time is a timestamp column value.
type Time time.Time

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Bytes) Kind() Kind  { return KindBytes }
func (Time) Kind() Kind   { return KindTime }

func (Null) value()   {}
func (Bool) value()   {}
func (Int) value()    {}
func (Float) value()  {}
func (String) value() {}
func (Bytes) value()  {}
func (Time) value()   {}

// NewBytes copies b into an immutable Bytes value.
func NewBytes(b []byte) Bytes {
	return Bytes(string(b))
}

// NewTime wraps t, normalised to UTC so equal instants share a representation.
func NewTime(t time.Time) Time {
	return Time(t.UTC())
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Equal reports whether a and b hold the same value.
//
// nil and Null are equal to each other. Float NaN equals NaN so that an
// untouched NaN column never reads as a modification. Time compares by instant.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && av == bv
	case Time:
		bv, ok := b.(Time)
		return ok && time.Time(av).Equal(time.Time(bv))
	default:
		return false
	}
}

// Of converts a Go scalar into a Value.
//
// Supported inputs: nil, Value, bool, all signed and unsigned integer types
// (unsigned values above MaxInt64 are rejected), float32, float64, string,
// []byte, time.Time and pointers to any of those (a nil pointer is Null).
func Of(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintValue(val)
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case []byte:
		if val == nil {
			return Null{}, nil
		}
		return NewBytes(val), nil
	case time.Time:
		return NewTime(val), nil
	case *bool:
		return ofPointer(val)
	case *int:
		return ofPointer(val)
	case *int64:
		return ofPointer(val)
	case *int32:
		return ofPointer(val)
	case *float64:
		return ofPointer(val)
	case *string:
		return ofPointer(val)
	case *time.Time:
		return ofPointer(val)
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustOf is like Of but panics on error.
// Use only in tests or with literals known to be valid.
func MustOf(v any) Value {
	val, err := Of(v)
	if err != nil {
		panic(err)
	}
	return val
}

func ofPointer[T any](p *T) (Value, error) {
	if p == nil {
		return Null{}, nil
	}
	return Of(*p)
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// Go returns the plain Go representation of v: nil, bool, int64, float64,
// string, []byte or time.Time.
func Go(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Bytes:
		return []byte(val)
	case Time:
		return time.Time(val)
	default:
		return nil
	}
}

// Coerce converts v to the requested kind where a lossless conversion exists.
//
// Null passes through for every kind. KindAny returns v unchanged. Strings
// parse into Int, Float, Bool and Time (RFC 3339); Int widens to Float and
// maps 0/1 to Bool. Anything else is an error.
func Coerce(kind Kind, v Value) (Value, error) {
	if IsNull(v) {
		return Null{}, nil
	}
	if kind == KindAny || v.Kind() == kind {
		return v, nil
	}

	switch kind {
	case KindInt:
		switch val := v.(type) {
		case Float:
			if float64(val) == math.Trunc(float64(val)) {
				return Int(int64(val)), nil
			}
		case String:
			n, err := strconv.ParseInt(string(val), 10, 64)
			if err == nil {
				return Int(n), nil
			}
		case Bool:
			if val {
				return Int(1), nil
			}
			return Int(0), nil
		}
	case KindFloat:
		switch val := v.(type) {
		case Int:
			return Float(float64(val)), nil
		case String:
			f, err := strconv.ParseFloat(string(val), 64)
			if err == nil {
				return Float(f), nil
			}
		}
	case KindBool:
		switch val := v.(type) {
		case Int:
			if val == 0 || val == 1 {
				return Bool(val == 1), nil
			}
		case String:
			b, err := strconv.ParseBool(string(val))
			if err == nil {
				return Bool(b), nil
			}
		}
	case KindString:
		if val, ok := v.(Bytes); ok {
			return String(val), nil
		}
	case KindBytes:
		if val, ok := v.(String); ok {
			return Bytes(val), nil
		}
	case KindTime:
		if val, ok := v.(String); ok {
			t, err := time.Parse(time.RFC3339Nano, string(val))
			if err == nil {
				return NewTime(t), nil
			}
		}
	}
	return nil, fmt.Errorf("cannot convert %s value %s to %s", v.Kind(), Format(v), kind)
}

// Format renders v for logs, identity keys and CLI output.
// It is not a serialization format; use MarshalCanonical for that.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return strconv.Quote(string(val))
	case Bytes:
		return fmt.Sprintf("0x%x", []byte(val))
	case Time:
		return time.Time(val).UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
