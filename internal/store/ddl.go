package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// CreateTable creates the table for s if it does not exist.
//
// Integer keys become auto-assigned keys; other key kinds must be supplied by
// the client. Non-key columns are nullable.
func (s *Store) CreateTable(ctx context.Context, sch *schema.Schema) error {
	stmt := s.dialect.createTableSQL(sch)
	s.log.Debug("create table", "table", sch.Table(), "sql", stmt)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", sch.Table(), err)
	}
	return nil
}

// TableDDL returns the statement CreateTable runs for sch on driver.
func TableDDL(driver string, sch *schema.Schema) (string, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return "", err
	}
	return d.createTableSQL(sch), nil
}

func (d dialect) createTableSQL(sch *schema.Schema) string {
	key := sch.Key()
	defs := make([]string, 0, len(sch.Columns())+1)
	if key.Kind == value.KindInt {
		defs = append(defs, quote(key.Column)+" "+d.intKey)
	} else {
		defs = append(defs, quote(key.Column)+" "+d.columnType(key.Kind)+" PRIMARY KEY")
	}
	for _, c := range sch.Columns() {
		defs = append(defs, quote(c.Column)+" "+d.columnType(c.Kind))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		quote(sch.Table()), strings.Join(defs, ",\n    "))
}
