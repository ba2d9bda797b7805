package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/joacominatel/dbdash/internal/database"
)

// ColumnType is a PostgreSQL type name the decoder understands.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeVarchar
	TypeBpchar
	TypeName
	TypeInt2
	TypeInt4
	TypeInt8
	TypeFloat4
	TypeFloat8
	TypeNumeric
	TypeBool
	TypeDate
	TypeTime
	TypeTimestamp
	TypeTimestamptz
)

// columnTypes maps pgx type names plus the generic SQL spellings used in
// DDL to their ColumnType.
var columnTypes = map[string]ColumnType{
	"text":        TypeText,
	"string":      TypeText,
	"varchar":     TypeVarchar,
	"bpchar":      TypeBpchar,
	"name":        TypeName,
	"int2":        TypeInt2,
	"smallint":    TypeInt2,
	"int4":        TypeInt4,
	"int":         TypeInt4,
	"integer":     TypeInt4,
	"serial":      TypeInt4,
	"int8":        TypeInt8,
	"bigint":      TypeInt8,
	"float4":      TypeFloat4,
	"real":        TypeFloat4,
	"float8":      TypeFloat8,
	"numeric":     TypeNumeric,
	"bool":        TypeBool,
	"boolean":     TypeBool,
	"date":        TypeDate,
	"time":        TypeTime,
	"timestamp":   TypeTimestamp,
	"datetime":    TypeTimestamp,
	"timestamptz": TypeTimestamptz,
}

// ParseColumnType resolves a type name, ignoring case and size modifiers.
func ParseColumnType(name string) (ColumnType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if idx := strings.IndexByte(name, '('); idx != -1 {
		name = strings.TrimSpace(name[:idx])
	}
	t, ok := columnTypes[name]
	return t, ok
}

// Kind returns the value kind the type decodes to.
func (t ColumnType) Kind() database.Kind {
	switch t {
	case TypeText, TypeVarchar, TypeBpchar, TypeName:
		return database.KindString
	case TypeInt2, TypeInt4, TypeInt8:
		return database.KindInteger
	case TypeFloat4, TypeFloat8, TypeNumeric:
		return database.KindReal
	case TypeBool:
		return database.KindBool
	case TypeDate:
		return database.KindDate
	case TypeTime:
		return database.KindTime
	case TypeTimestamp, TypeTimestamptz:
		return database.KindTimestamp
	}
	panic("postgres: unhandled column type")
}

// Decode converts rows into records using the type names reported by pgx.
func (c *Conn) Decode(rows []database.Row) ([]database.Record, error) {
	return Decode(rows)
}

// Decode is the connection-independent form of Conn.Decode.
func Decode(rows []database.Row) ([]database.Record, error) {
	out := make([]database.Record, 0, len(rows))
	for _, row := range rows {
		rec := database.NewRecord(len(row.Fields))
		for i, f := range row.Fields {
			ct, ok := ParseColumnType(f.TypeName)
			if !ok {
				return nil, &database.ParseError{Column: f.Name, Index: i, TypeName: f.TypeName}
			}

			var raw any
			if i < len(row.Values) {
				raw = row.Values[i]
			}
			raw, err := normalize(raw)
			if err != nil {
				return nil, &database.ParseError{Column: f.Name, Index: i, TypeName: f.TypeName, Err: err}
			}

			v, err := database.Convert(ct.Kind(), raw)
			if err != nil {
				return nil, &database.ParseError{Column: f.Name, Index: i, TypeName: f.TypeName, Err: err}
			}
			rec.Set(f.Name, v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// midnight is the reference day Time values are placed on.
var midnight = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)

// normalize maps the Go types pgx produces to the ones database.Convert accepts.
func normalize(raw any) (any, error) {
	switch x := raw.(type) {
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case pgtype.Numeric:
		if !x.Valid {
			return nil, nil
		}
		f, err := x.Float64Value()
		if err != nil {
			return nil, fmt.Errorf("numeric: %w", err)
		}
		if !f.Valid {
			return nil, nil
		}
		return f.Float64, nil
	case pgtype.Time:
		if !x.Valid {
			return nil, nil
		}
		return midnight.Add(time.Duration(x.Microseconds) * time.Microsecond), nil
	default:
		return raw, nil
	}
}
