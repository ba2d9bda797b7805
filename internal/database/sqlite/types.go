package sqlite

import (
	"strings"

	"github.com/joacominatel/dbdash/internal/database"
)

// ColumnType is a SQLite type name the decoder understands.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeVarchar
	TypeInteger
	TypeInt
	TypeSerial
	TypeReal
	TypeNumeric
	TypeBoolean
	TypeDate
	TypeTime
	TypeDatetime
)

var columnTypes = map[string]ColumnType{
	"TEXT":     TypeText,
	"VARCHAR":  TypeVarchar,
	"INTEGER":  TypeInteger,
	"INT":      TypeInt,
	"SERIAL":   TypeSerial,
	"REAL":     TypeReal,
	"NUMERIC":  TypeNumeric,
	"BOOLEAN":  TypeBoolean,
	"DATE":     TypeDate,
	"TIME":     TypeTime,
	"DATETIME": TypeDatetime,
}

// ParseColumnType resolves a reported type name, ignoring case and any size
// modifier such as VARCHAR(100).
func ParseColumnType(name string) (ColumnType, bool) {
	t, ok := columnTypes[baseType(name)]
	return t, ok
}

// Kind returns the value kind the type decodes to.
func (t ColumnType) Kind() database.Kind {
	switch t {
	case TypeText, TypeVarchar:
		return database.KindString
	case TypeInteger, TypeInt, TypeSerial:
		return database.KindInteger
	case TypeReal, TypeNumeric:
		return database.KindReal
	case TypeBoolean:
		return database.KindBool
	case TypeDate:
		return database.KindDate
	case TypeTime:
		return database.KindTime
	case TypeDatetime:
		return database.KindTimestamp
	}
	panic("sqlite: unhandled column type")
}

// Decode converts rows into records using each column's declared type.
// Columns without a declared type (expressions) use the storage class of
// the value instead.
func (c *Conn) Decode(rows []database.Row) ([]database.Record, error) {
	return Decode(rows)
}

// Decode is the connection-independent form of Conn.Decode.
func Decode(rows []database.Row) ([]database.Record, error) {
	out := make([]database.Record, 0, len(rows))
	for _, row := range rows {
		rec := database.NewRecord(len(row.Fields))
		for i, f := range row.Fields {
			var raw any
			if i < len(row.Values) {
				raw = row.Values[i]
			}

			typeName := f.TypeName
			if strings.TrimSpace(typeName) == "" {
				typeName = storageClass(raw)
			}

			ct, ok := ParseColumnType(typeName)
			if !ok {
				return nil, &database.ParseError{Column: f.Name, Index: i, TypeName: typeName}
			}

			v, err := database.Convert(ct.Kind(), raw)
			if err != nil {
				return nil, &database.ParseError{Column: f.Name, Index: i, TypeName: typeName, Err: err}
			}
			rec.Set(f.Name, v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// storageClass names the type of an undeclared column from the driver value.
func storageClass(raw any) string {
	switch raw.(type) {
	case int64, bool:
		return "INTEGER"
	case float64:
		return "REAL"
	case []byte:
		return "BLOB"
	default:
		// string, time.Time and NULL
		return "TEXT"
	}
}

func baseType(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if idx := strings.IndexByte(name, '('); idx != -1 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}
