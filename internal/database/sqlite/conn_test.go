package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joacominatel/dbdash/internal/database"
)

func openTestDB(t *testing.T) *Conn {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	conn := Connect(context.Background(), path, database.Options{})
	require.NoError(t, conn.Err())
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestConnect_CreatesFileAndBootstrap(t *testing.T) {
	conn := openTestDB(t)
	require.Equal(t, database.StateReady, conn.State())
	require.Equal(t, "test.db", conn.Name())

	tables, err := conn.ListTables(context.Background())
	require.NoError(t, err)
	require.Contains(t, tables, "users")
}

func TestConnect_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "twice.db")

	first := Connect(ctx, path, database.Options{})
	require.NoError(t, first.Err())
	n, err := first.Execute(ctx, "INSERT INTO users(email,password) VALUES(?,?)", database.Str("a@b.c"), database.Str("x"))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, first.Close())

	second := Connect(ctx, path, database.Options{})
	require.NoError(t, second.Err())
	defer second.Close()

	rows, err := second.QueryAll(ctx, "SELECT count(*) AS n FROM users")
	require.NoError(t, err)
	recs, err := second.Decode(rows)
	require.NoError(t, err)
	v, _ := recs[0].Get("n")
	require.True(t, v.Equal(database.Int(1)))

	rows, err = second.QueryAll(ctx, "SELECT count(*) AS n FROM sqlite_master WHERE name = 'users'")
	require.NoError(t, err)
	recs, err = second.Decode(rows)
	require.NoError(t, err)
	v, _ = recs[0].Get("n")
	require.True(t, v.Equal(database.Int(1)))
}

func TestConnect_FileCreationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "x.db")
	conn := Connect(context.Background(), path, database.Options{})

	require.Equal(t, database.StateFailed, conn.State())
	var connErr *database.ConnectionError
	require.True(t, errors.As(conn.Err(), &connErr))
	require.Equal(t, database.CodeFileCreate, connErr.Code)
	require.NotEmpty(t, connErr.Message)
	require.NoError(t, conn.Close())
}

func TestFailedConnection_OperationsFailFast(t *testing.T) {
	conn := Connect(context.Background(), "", database.Options{})
	require.Equal(t, database.StateFailed, conn.State())

	ctx := context.Background()
	_, err := conn.QueryAll(ctx, "SELECT 1")
	require.Equal(t, "connection", database.KindOf(err))
	_, err = conn.Execute(ctx, "DELETE FROM users")
	require.Equal(t, "connection", database.KindOf(err))
	_, err = conn.TableInfo(ctx, "users")
	require.Equal(t, "connection", database.KindOf(err))
	_, err = conn.ListTables(ctx)
	require.Equal(t, "connection", database.KindOf(err))
	require.Error(t, conn.Ping(ctx))

	var connErr *database.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.Same(t, conn.err, connErr)
}

func TestTableInfo_Users(t *testing.T) {
	conn := openTestDB(t)

	cols, err := conn.TableInfo(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, cols, 4)

	require.Equal(t, "id", cols[0].Name)
	require.True(t, cols[0].PrimaryKey)
	require.True(t, cols[0].NotNull)
	require.Equal(t, "INTEGER", cols[0].DataType)

	require.Equal(t, "email", cols[1].Name)
	require.True(t, cols[1].NotNull)
	require.False(t, cols[1].PrimaryKey)
	require.Equal(t, "VARCHAR(100)", cols[1].DataType)

	require.Equal(t, "password", cols[2].Name)
	require.True(t, cols[2].NotNull)

	require.Equal(t, "role", cols[3].Name)
	require.False(t, cols[3].NotNull)
	require.Nil(t, cols[3].Default)

	for i, c := range cols {
		require.Equal(t, i, c.Position)
	}
}

func TestTableInfo_Default(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.Execute(ctx, "CREATE TABLE settings(key TEXT PRIMARY KEY, value TEXT DEFAULT 'on')")
	require.NoError(t, err)

	cols, err := conn.TableInfo(ctx, "settings")
	require.NoError(t, err)
	require.NotNil(t, cols[1].Default)
	require.Equal(t, "'on'", *cols[1].Default)
}

func TestTableInfo_Missing(t *testing.T) {
	conn := openTestDB(t)

	_, err := conn.TableInfo(context.Background(), "nope")
	require.ErrorIs(t, err, database.ErrTableNotFound)
	require.Equal(t, "schema", database.KindOf(err))
}

func TestExecute_InsertAffectsOneRow(t *testing.T) {
	conn := openTestDB(t)

	n, err := conn.Execute(context.Background(),
		"INSERT INTO users(email,password) VALUES(?,?)",
		database.Str("admin@example.com"), database.Str("hash"))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestExecute_ConstraintViolationIsQueryError(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	insert := "INSERT INTO users(email,password) VALUES(?,?)"
	_, err := conn.Execute(ctx, insert, database.Str("dup@example.com"), database.Str("x"))
	require.NoError(t, err)
	_, err = conn.Execute(ctx, insert, database.Str("dup@example.com"), database.Str("y"))
	require.Equal(t, "query", database.KindOf(err))
}

func TestBind_ArityMismatch(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.Execute(ctx, "INSERT INTO users(email,password) VALUES(?,?)", database.Str("only-one"))
	var bindErr *database.BindError
	require.True(t, errors.As(err, &bindErr))
	require.Equal(t, 2, bindErr.Expected)
	require.Equal(t, 1, bindErr.Got)

	_, err = conn.QueryAll(ctx, "SELECT 1", database.Int(1))
	require.True(t, errors.As(err, &bindErr))
}

func TestBind_NamedParameterIsBindError(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.QueryAll(ctx, "SELECT :a AS x", database.Int(7))
	var bindErr *database.BindError
	require.True(t, errors.As(err, &bindErr))
	require.Equal(t, "bind", database.KindOf(err))

	_, err = conn.Execute(ctx, "UPDATE users SET role = @role", database.Str("admin"))
	require.Equal(t, "bind", database.KindOf(err))
}

func TestBind_NumberedDollar(t *testing.T) {
	conn := openTestDB(t)

	rows, err := conn.QueryAll(context.Background(), "SELECT $2 AS b, $1 AS a", database.Int(1), database.Str("two"))
	require.NoError(t, err)
	recs, err := conn.Decode(rows)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	a, _ := recs[0].Get("a")
	require.True(t, a.Equal(database.Int(1)))
	b, _ := recs[0].Get("b")
	require.True(t, b.Equal(database.Str("two")))
}

func TestBind_CompositeRejected(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.QueryAll(ctx, "SELECT ?", database.Array())
	var bindErr *database.BindError
	require.True(t, errors.As(err, &bindErr))
	require.Equal(t, database.KindArray, bindErr.Kind)

	_, err = conn.Execute(ctx, "SELECT ?", database.Object())
	require.True(t, errors.As(err, &bindErr))
	require.Equal(t, database.KindObject, bindErr.Kind)
}

func TestRoundTrip_AllKinds(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.Execute(ctx, `CREATE TABLE samples(
		i INTEGER, r REAL, s TEXT, v VARCHAR(20), b BOOLEAN,
		d DATE, t TIME, ts DATETIME)`)
	require.NoError(t, err)

	stamp := time.Date(2024, 3, 5, 14, 30, 15, 500, time.FixedZone("UTC+3", 3*3600))
	values := []database.Value{
		database.Int(-42),
		database.Real(3.25),
		database.Str("hello"),
		database.Str("short"),
		database.Bool(true),
		database.Date(stamp),
		database.Time(stamp),
		database.Timestamp(stamp),
	}
	nulls := []database.Value{
		database.Null(database.KindInteger),
		database.Null(database.KindReal),
		database.Null(database.KindString),
		database.Null(database.KindString),
		database.Null(database.KindBool),
		database.Null(database.KindDate),
		database.Null(database.KindTime),
		database.Null(database.KindTimestamp),
	}
	names := []string{"i", "r", "s", "v", "b", "d", "t", "ts"}

	insert := "INSERT INTO samples(i, r, s, v, b, d, t, ts) VALUES(?, ?, ?, ?, ?, ?, ?, ?)"
	for _, set := range [][]database.Value{values, nulls} {
		n, err := conn.Execute(ctx, insert, set...)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	}

	rows, err := conn.QueryAll(ctx, "SELECT i, r, s, v, b, d, t, ts FROM samples ORDER BY rowid")
	require.NoError(t, err)
	recs, err := conn.Decode(rows)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	for row, want := range [][]database.Value{values, nulls} {
		require.Equal(t, names, recs[row].Keys())
		for i, name := range names {
			got, ok := recs[row].Get(name)
			require.True(t, ok)
			require.Truef(t, want[i].Equal(got), "row %d column %s: want %v got %v", row, name, want[i], got)
		}
	}
}

func TestDecode_UnknownTypeIsParseError(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.Execute(ctx, "CREATE TABLE files(name TEXT, payload BLOB)")
	require.NoError(t, err)
	_, err = conn.Execute(ctx, "INSERT INTO files VALUES(?, ?)", database.Str("a"), database.Str("b"))
	require.NoError(t, err)

	rows, err := conn.QueryAll(ctx, "SELECT name, payload FROM files")
	require.NoError(t, err)

	_, err = conn.Decode(rows)
	var parseErr *database.ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, "payload", parseErr.Column)
	require.Equal(t, "BLOB", parseErr.TypeName)
	require.Equal(t, 1, parseErr.Index)
}

func TestDecode_ExpressionBlobReportsStorageClass(t *testing.T) {
	conn := openTestDB(t)

	rows, err := conn.QueryAll(context.Background(), "SELECT x'00ff' AS raw")
	require.NoError(t, err)

	_, err = conn.Decode(rows)
	var parseErr *database.ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, "BLOB", parseErr.TypeName)
	require.Contains(t, err.Error(), `unsupported type "BLOB"`)
}

func TestDecode_DuplicateColumnLaterWins(t *testing.T) {
	conn := openTestDB(t)

	rows, err := conn.QueryAll(context.Background(), "SELECT 1 AS a, 'x' AS b, 2 AS a")
	require.NoError(t, err)
	recs, err := conn.Decode(rows)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	require.Equal(t, []string{"a", "b"}, recs[0].Keys())
	v, _ := recs[0].Get("a")
	require.True(t, v.Equal(database.Int(2)))
}

func TestDecode_ExpressionColumns(t *testing.T) {
	conn := openTestDB(t)

	rows, err := conn.QueryAll(context.Background(), "SELECT NULL AS n, 1.5 AS f, 'txt' AS s")
	require.NoError(t, err)
	recs, err := conn.Decode(rows)
	require.NoError(t, err)

	n, _ := recs[0].Get("n")
	require.True(t, n.IsNull())
	f, _ := recs[0].Get("f")
	require.True(t, f.Equal(database.Real(1.5)))
	s, _ := recs[0].Get("s")
	require.True(t, s.Equal(database.Str("txt")))
}

func TestConcurrentUse(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := conn.Execute(ctx, "INSERT INTO users(email,password) VALUES(?,?)",
				database.Str(fmt.Sprintf("user%d@example.com", i)), database.Str("p"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows, err := conn.QueryAll(ctx, "SELECT count(*) AS n FROM users")
	require.NoError(t, err)
	recs, err := conn.Decode(rows)
	require.NoError(t, err)
	v, _ := recs[0].Get("n")
	require.True(t, v.Equal(database.Int(10)))
}

func TestColumnType_EveryMemberHasKind(t *testing.T) {
	for name, ct := range columnTypes {
		require.NotPanics(t, func() { _ = ct.Kind() }, name)
	}
	ct, ok := ParseColumnType("varchar(255)")
	require.True(t, ok)
	require.Equal(t, TypeVarchar, ct)
	_, ok = ParseColumnType("BLOB")
	require.False(t, ok)
}
