package store

import (
	"fmt"
	"strings"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Supported database/sql driver names.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	name       string
	sqlite     bool
	returning  bool // INSERT ... RETURNING for generated keys
	timeAsText bool // store Time as RFC 3339 text
	types      map[value.Kind]string
	intKey     string // column definition for a generated integer key
}

var sqliteDialect = dialect{
	name:       "sqlite",
	sqlite:     true,
	timeAsText: true,
	types: map[value.Kind]string{
		value.KindAny:    "BLOB",
		value.KindBool:   "INTEGER",
		value.KindInt:    "INTEGER",
		value.KindFloat:  "REAL",
		value.KindString: "TEXT",
		value.KindBytes:  "BLOB",
		value.KindTime:   "TEXT",
	},
	intKey: "INTEGER PRIMARY KEY",
}

var postgresDialect = dialect{
	name:      "postgres",
	returning: true,
	types: map[value.Kind]string{
		value.KindAny:    "TEXT",
		value.KindBool:   "BOOLEAN",
		value.KindInt:    "BIGINT",
		value.KindFloat:  "DOUBLE PRECISION",
		value.KindString: "TEXT",
		value.KindBytes:  "BYTEA",
		value.KindTime:   "TIMESTAMPTZ",
	},
	intKey: "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite3, DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported driver %q (want %s, %s or %s)",
		driver, DriverSQLite3, DriverSQLite, DriverPostgres)
}

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d.sqlite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

func (d dialect) columnType(k value.Kind) string {
	if t, ok := d.types[k]; ok {
		return t
	}
	return d.types[value.KindAny]
}

// quote quotes an identifier.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// splitStatements splits a SQL script on semicolons that end a line.
// Scripts here contain no semicolons inside literals.
func splitStatements(script string) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
