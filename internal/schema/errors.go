package schema

import "errors"

// Schema construction errors.
var (
	ErrEmptyType       = errors.New("entity type name must not be empty")
	ErrEmptyTable      = errors.New("table name must not be empty")
	ErrNoPrimaryKey    = errors.New("schema has no primary key")
	ErrMultipleKeys    = errors.New("schema declares more than one primary key")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrKeyNotWritable  = errors.New("primary key must be readable and writable")
	ErrNoAccessor      = errors.New("field has neither getter nor setter")
	ErrUnsupportedType = errors.New("unsupported field type")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Accessor errors.
var (
	ErrEntityType   = errors.New("entity has the wrong type for this schema")
	ErrNotReadable  = errors.New("field is not readable")
	ErrNotWritable  = errors.New("field is not writable")
	ErrKindMismatch = errors.New("value kind does not match column kind")
)
