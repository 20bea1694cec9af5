// Package loader hydrates a source.Source from a live SQL table, reusing
// database/sql for the row scan (grounded on the teacher's
// pkg/dataaccess query-and-scan shape) and gorm's schema introspection to
// derive a source.Schema without the caller hand-declaring columns.
package loader

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// SchemaFromModel derives a source.Schema from a gorm model using gorm's
// own schema parser, so a Source's declared columns and primary key stay
// in lockstep with the struct tags driving the live table.
func SchemaFromModel(db *gorm.DB, name string, model interface{}) (source.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return source.Schema{}, fmt.Errorf("parse gorm schema for %q failed: %w", name, err)
	}

	schema := source.Schema{Name: name}
	for _, f := range stmt.Schema.Fields {
		if f.DBName == "" {
			continue
		}
		schema.Columns = append(schema.Columns, row.Column{Name: f.DBName})
		if f.PrimaryKey {
			schema.PrimaryKey = append(schema.PrimaryKey, f.DBName)
		}
	}
	return schema, nil
}

// TableLoader scans a table through database/sql (lib/pq or
// go-sql-driver/mysql underneath, depending on the DSN driver registered)
// and pushes each row into a Source as a change.SourceAdd.
type TableLoader struct {
	db    *sql.DB
	table string
}

func NewTableLoader(db *sql.DB, table string) *TableLoader {
	return &TableLoader{db: db, table: table}
}

// Hydrate runs `SELECT * FROM table` and pushes every row, in result
// order, as a source add.
func (l *TableLoader) Hydrate(src *source.Source) error {
	rows, err := l.db.Query(fmt.Sprintf("SELECT * FROM %s", l.table)) //nolint:gosec // table name is operator-supplied, not user input
	if err != nil {
		return fmt.Errorf("query table %q failed: %w", l.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read columns of %q failed: %w", l.table, err)
	}

	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row of %q failed: %w", l.table, err)
		}
		r := make(row.Row, len(cols))
		for i, col := range cols {
			r[col] = normalizeDriverValue(values[i])
		}
		if err := src.Push(change.NewSourceAdd(r)); err != nil {
			return fmt.Errorf("hydrate row into source %q failed: %w", src.Name(), err)
		}
	}
	return rows.Err()
}

// normalizeDriverValue unwraps the []byte a driver commonly returns for
// TEXT/VARCHAR columns into a plain string, so downstream Ordering and
// collation comparisons see a string rather than a byte slice.
func normalizeDriverValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
