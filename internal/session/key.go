package session

import (
	"fmt"
	"time"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Key is the identity of an entity within a session: its type name and its
// primary-key value. Keys are comparable and used directly as map keys.
//
// An entity attached without a primary key gets a provisional key carrying an
// opaque token instead of an id. No Lookup can construct a provisional key, so
// such entities are unreachable until rekeyed.
type Key struct {
	Type string
	ID   value.Value

	token string
}

// NewKey returns the key for (typ, id). Time ids are normalized to UTC so
// that equal instants produce equal keys.
func NewKey(typ string, id value.Value) Key {
	switch v := id.(type) {
	case nil:
		id = value.Null{}
	case value.Time:
		id = value.NewTime(time.Time(v))
	}
	return Key{Type: typ, ID: id}
}

func provisionalKey(typ, token string) Key {
	return Key{Type: typ, ID: value.Null{}, token: token}
}

// Provisional reports whether k stands in for a not-yet-assigned key.
func (k Key) Provisional() bool {
	return k.token != ""
}

// String renders k as "Type#id", or "Type#<new>" when provisional.
func (k Key) String() string {
	if k.Provisional() {
		return k.Type + "#<new>"
	}
	return fmt.Sprintf("%s#%s", k.Type, value.Format(k.ID))
}
