package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joacominatel/dbdash/internal/database"
)

// QueryAll runs query with args bound positionally and returns every row.
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

	rows, err := c.db.QueryContext(ctx, query, bound...)
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

// Execute runs query and returns the number of affected rows.
func (c *Conn) Execute(ctx context.Context, query string, args ...database.Value) (int64, error) {
	if c.err != nil {
		return 0, fmt.Errorf("execute: %w", c.err)
	}

	bound, err := bindArgs(query, args)
	if err != nil {
		return 0, err
	}

	res, err := c.db.ExecContext(ctx, query, bound...)
	if err != nil {
		return 0, &database.QueryError{Query: query, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &database.QueryError{Query: query, Err: err}
	}
	return n, nil
}

// bindArgs checks arity and converts values to driver arguments. Temporal
// values are written as text in the layouts the decoder reads back.
func bindArgs(query string, args []database.Value) ([]any, error) {
	if err := database.CheckArity(query, database.StyleQuestion, len(args)); err != nil {
		return nil, err
	}

	out := make([]any, len(args))
	for i, v := range args {
		if k := v.Kind(); k == database.KindArray || k == database.KindObject {
			return nil, &database.BindError{Index: i, Kind: k, Reason: "not supported by sqlite"}
		}
		if v.IsNull() {
			out[i] = nil
			continue
		}

		switch v.Kind() {
		case database.KindInteger:
			out[i], _ = v.AsInt()
		case database.KindReal:
			out[i], _ = v.AsReal()
		case database.KindString:
			out[i], _ = v.AsString()
		case database.KindBool:
			out[i], _ = v.AsBool()
		case database.KindDate:
			t, _ := v.AsTime()
			out[i] = t.Format(database.DateLayout)
		case database.KindTime:
			t, _ := v.AsTime()
			out[i] = t.Format(database.TimeLayout)
		case database.KindTimestamp:
			t, _ := v.AsTime()
			out[i] = t.Format(database.TimestampLayout)
		}
	}
	return out, nil
}

func collectRows(rows *sql.Rows) ([]database.Field, []database.Row, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("column types: %w", err)
	}

	fields := make([]database.Field, len(types))
	for i, ct := range types {
		fields[i] = database.Field{Name: ct.Name(), TypeName: ct.DatabaseTypeName()}
	}

	var out []database.Row
	for rows.Next() {
		values := make([]any, len(fields))
		ptrs := make([]any, len(fields))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		out = append(out, database.Row{Fields: fields, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}
	return fields, out, nil
}
