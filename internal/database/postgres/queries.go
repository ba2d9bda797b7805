package postgres

// SQL queries for PostgreSQL metadata introspection. $1 is an optional schema
// name; empty selects current_schema().
const (
	queryListTables = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	queryGetColumns = `
		SELECT
			c.ordinal_position::int,
			c.column_name::text,
			c.data_type::text,
			c.is_nullable::text,
			c.column_default::text,
			CASE WHEN pk.column_name IS NOT NULL THEN true ELSE false END AS is_primary
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT ku.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage ku
				ON tc.constraint_name = ku.constraint_name
				AND tc.table_schema = ku.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = COALESCE(NULLIF($1, ''), current_schema())
				AND tc.table_name = $2
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND c.table_name = $2
		ORDER BY c.ordinal_position`
)
