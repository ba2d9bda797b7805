package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/joacominatel/dbdash/internal/database"
)

// QueryAll runs a SQL query with positional arguments and returns every row.
func (c *Conn) QueryAll(ctx context.Context, query string, args ...database.Value) ([]database.Row, error) {
	_, rows, err := c.QueryFields(ctx, query, args...)
	return rows, err
}

// QueryFields is QueryAll plus the result's fields, which are reported even
// when no row comes back.
func (c *Conn) QueryFields(ctx context.Context, query string, args ...database.Value) ([]database.Field, []database.Row, error) {
	if c.err != nil {
		return nil, nil, fmt.Errorf("query all: %w", c.err)
	}

	bound, err := bindArgs(query, args)
	if err != nil {
		return nil, nil, err
	}

	rows, err := c.pool.Query(ctx, query, bound...)
	if err != nil {
		return nil, nil, &database.QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	fields, out, err := collectRows(rows)
	if err != nil {
		return nil, nil, &database.QueryError{Query: query, Err: err}
	}
	return fields, out, nil
}

// Execute runs a statement and returns the number of affected rows.
func (c *Conn) Execute(ctx context.Context, query string, args ...database.Value) (int64, error) {
	if c.err != nil {
		return 0, fmt.Errorf("execute: %w", c.err)
	}

	bound, err := bindArgs(query, args)
	if err != nil {
		return 0, err
	}

	tag, err := c.pool.Exec(ctx, query, bound...)
	if err != nil {
		return 0, &database.QueryError{Query: query, Err: err}
	}
	return tag.RowsAffected(), nil
}

// TableInfo returns column metadata for a table. A "schema.table" name
// selects the schema; otherwise the current schema is used.
func (c *Conn) TableInfo(ctx context.Context, table string) ([]database.Column, error) {
	if c.err != nil {
		return nil, fmt.Errorf("table info: %w", c.err)
	}

	schema, name := "", table
	if i := strings.IndexByte(table, '.'); i > 0 {
		schema, name = table[:i], table[i+1:]
	}

	rows, err := c.pool.Query(ctx, queryGetColumns, schema, name)
	if err != nil {
		return nil, &database.SchemaError{Table: table, Err: err}
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		var (
			col      database.Column
			nullable string
		)
		if err := rows.Scan(&col.Position, &col.Name, &col.DataType, &nullable, &col.Default, &col.PrimaryKey); err != nil {
			return nil, &database.SchemaError{Table: table, Err: fmt.Errorf("scan column: %w", err)}
		}
		col.NotNull = nullable == "NO"
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

// ListTables returns all base tables in the current schema.
func (c *Conn) ListTables(ctx context.Context) ([]string, error) {
	if c.err != nil {
		return nil, fmt.Errorf("list tables: %w", c.err)
	}

	rows, err := c.pool.Query(ctx, queryListTables)
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

// bindArgs checks arity and wraps each value in the pgtype carrying its
// type and validity, so NULLs keep their parameter type.
func bindArgs(query string, args []database.Value) ([]any, error) {
	if err := database.CheckArity(query, database.StyleDollar, len(args)); err != nil {
		return nil, err
	}

	out := make([]any, len(args))
	for i, v := range args {
		valid := !v.IsNull()
		switch v.Kind() {
		case database.KindInteger:
			n, _ := v.AsInt()
			out[i] = pgtype.Int8{Int64: n, Valid: valid}
		case database.KindReal:
			f, _ := v.AsReal()
			out[i] = pgtype.Float8{Float64: f, Valid: valid}
		case database.KindString:
			s, _ := v.AsString()
			out[i] = pgtype.Text{String: s, Valid: valid}
		case database.KindBool:
			b, _ := v.AsBool()
			out[i] = pgtype.Bool{Bool: b, Valid: valid}
		case database.KindDate:
			t, _ := v.AsTime()
			out[i] = pgtype.Date{Time: t, Valid: valid}
		case database.KindTime:
			t, _ := v.AsTime()
			out[i] = pgtype.Time{Microseconds: sinceMidnight(t).Microseconds(), Valid: valid}
		case database.KindTimestamp:
			t, _ := v.AsTime()
			out[i] = pgtype.Timestamp{Time: t, Valid: valid}
		case database.KindArray, database.KindObject:
			return nil, &database.BindError{Index: i, Kind: v.Kind(), Reason: "not supported by postgres"}
		default:
			return nil, &database.BindError{Index: i, Kind: v.Kind(), Reason: "unknown value kind"}
		}
	}
	return out, nil
}

func collectRows(rows pgx.Rows) ([]database.Field, []database.Row, error) {
	descs := rows.FieldDescriptions()
	typeMap := rows.Conn().TypeMap()

	fields := make([]database.Field, len(descs))
	for i, d := range descs {
		name := fmt.Sprintf("oid:%d", d.DataTypeOID)
		if t, ok := typeMap.TypeForOID(d.DataTypeOID); ok {
			name = t.Name
		}
		fields[i] = database.Field{Name: d.Name, TypeName: name}
	}

	var out []database.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		out = append(out, database.Row{Fields: fields, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}
	return fields, out, nil
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
