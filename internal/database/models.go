package database

// Column represents a table column with its metadata, as reported by the
// backend catalog at introspection time.
type Column struct {
	Position   int
	Name       string
	DataType   string
	NotNull    bool
	Default    *string
	PrimaryKey bool
}

// Field describes one result column: its name and the type name the backend
// reported for it.
type Field struct {
	Name     string
	TypeName string
}

// Row is one native result row. Values hold what the driver produced, in
// column order; Fields is shared by every row of the same result.
type Row struct {
	Fields []Field
	Values []any
}
