package store

import (
	"fmt"
	"time"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// toDriver converts a column value to a database/sql argument.
func (d dialect) toDriver(v value.Value) any {
	switch x := v.(type) {
	case nil, value.Null:
		return nil
	case value.Bool:
		return bool(x)
	case value.Int:
		return int64(x)
	case value.Float:
		return float64(x)
	case value.String:
		return string(x)
	case value.Bytes:
		return []byte(x)
	case value.Time:
		t := time.Time(x).UTC()
		if d.timeAsText {
			return t.Format(time.RFC3339Nano)
		}
		return t
	}
	return value.Go(v)
}

// fromDriver converts a scanned database value to a column value of kind.
func fromDriver(raw any, kind value.Kind) (value.Value, error) {
	var v value.Value
	switch x := raw.(type) {
	case nil:
		return value.Null{}, nil
	case int64:
		v = value.Int(x)
	case float64:
		v = value.Float(x)
	case bool:
		v = value.Bool(x)
	case string:
		v = value.String(x)
	case []byte:
		if kind == value.KindBytes || kind == value.KindAny {
			v = value.NewBytes(x)
		} else {
			v = value.String(x)
		}
	case time.Time:
		v = value.NewTime(x)
	default:
		var err error
		if v, err = value.Of(raw); err != nil {
			return nil, fmt.Errorf("scan %T: %w", raw, err)
		}
	}
	return value.Coerce(kind, v)
}
