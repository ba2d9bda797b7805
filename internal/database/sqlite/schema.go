package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joacominatel/dbdash/internal/database"
)

// Catalog queries. pragma_table_info is the table-valued form of
// PRAGMA table_info, which lets the table name be bound.
const (
	queryTableInfo = `
		SELECT cid, name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid`

	queryListTables = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
)

// TableInfo returns the columns of table in declaration order.
func (c *Conn) TableInfo(ctx context.Context, table string) ([]database.Column, error) {
	if c.err != nil {
		return nil, fmt.Errorf("table info: %w", c.err)
	}

	rows, err := c.db.QueryContext(ctx, queryTableInfo, table)
	if err != nil {
		return nil, &database.SchemaError{Table: table, Err: err}
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		var (
			col     database.Column
			notNull int64
			dflt    sql.NullString
			pk      int64
		)
		if err := rows.Scan(&col.Position, &col.Name, &col.DataType, &notNull, &dflt, &pk); err != nil {
			return nil, &database.SchemaError{Table: table, Err: fmt.Errorf("scan column: %w", err)}
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk > 0
		if dflt.Valid {
			col.Default = &dflt.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, &database.SchemaError{Table: table, Err: err}
	}

	if len(columns) == 0 {
		return nil, &database.SchemaError{Table: table, Err: database.ErrTableNotFound}
	}
	return columns, nil
}

// ListTables returns the user tables, sorted by name.
func (c *Conn) ListTables(ctx context.Context) ([]string, error) {
	if c.err != nil {
		return nil, fmt.Errorf("list tables: %w", c.err)
	}

	rows, err := c.db.QueryContext(ctx, queryListTables)
	if err != nil {
		return nil, &database.QueryError{Query: queryListTables, Err: err}
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &database.QueryError{Query: queryListTables, Err: fmt.Errorf("scan table: %w", err)}
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
