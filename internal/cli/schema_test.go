package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCommandJSON(t *testing.T) {
	stdout, _, code := execute(t, "--format", "json", "schema", entitiesDir)
	require.Equal(t, ExitSuccess, code, stdout)

	var out SchemaOutput
	resp := decodeResponse(t, stdout, &out)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, out.Entities, 2)

	customer, order := out.Entities[0], out.Entities[1]
	assert.Equal(t, "Customer", customer.Type)
	assert.Equal(t, "customers", customer.Table)
	assert.Equal(t, "email", customer.Key)
	assert.Equal(t, []ColumnOutput{
		{Name: "email", Kind: "string"},
		{Name: "name", Kind: "string"},
		{Name: "created", Kind: "time", ReadOnly: true},
	}, customer.Columns)
	assert.Empty(t, customer.DDL)

	assert.Equal(t, "Order", order.Type)
	assert.Equal(t, "id", order.Key)
	assert.Len(t, order.Columns, 3)
}

func TestSchemaCommandDDL(t *testing.T) {
	tests := []struct {
		driver string
		intKey string
	}{
		{"sqlite3", `"id" INTEGER PRIMARY KEY`},
		{"pgx", `"id" BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY`},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			stdout, _, code := execute(t, "--format", "json", "schema", "--ddl", "--driver", tt.driver, entitiesDir)
			require.Equal(t, ExitSuccess, code, stdout)

			var out SchemaOutput
			decodeResponse(t, stdout, &out)
			require.Len(t, out.Entities, 2)
			assert.Contains(t, out.Entities[0].DDL, `CREATE TABLE IF NOT EXISTS "customers"`)
			assert.Contains(t, out.Entities[1].DDL, `CREATE TABLE IF NOT EXISTS "orders"`)
			assert.Contains(t, out.Entities[1].DDL, tt.intKey)
		})
	}
}

func TestSchemaCommandText(t *testing.T) {
	stdout, _, code := execute(t, "schema", "--ddl", entitiesDir)
	require.Equal(t, ExitSuccess, code, stdout)

	assert.Contains(t, stdout, "2 entities")
	assert.Contains(t, stdout, "Customer (table customers, key email)")
	assert.Contains(t, stdout, "time readonly")
	assert.Contains(t, stdout, `CREATE TABLE IF NOT EXISTS "orders"`)
}

func TestSchemaCommandUnknownDriver(t *testing.T) {
	_, stderr, code := execute(t, "schema", "--ddl", "--driver", "oracle", entitiesDir)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid --driver")
}

func TestSchemaCommandMissingDir(t *testing.T) {
	stdout, _, code := execute(t, "--format", "json", "schema", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, ExitCommandError, code)

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestSchemaCommandInvalidDescriptor(t *testing.T) {
	dir := t.TempDir()
	src := `package entities

entity: User: {
	table: "users"
	columns: [
		{name: "id", kind: "int"},
	]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.cue"), []byte(src), 0o644))

	stdout, stderr, code := execute(t, "--format", "json", "schema", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, stderr)

	resp := decodeResponse(t, stdout, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDescriptor, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "key")
}
