package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValue_NullKeepsKind(t *testing.T) {
	for _, k := range []Kind{KindInteger, KindReal, KindString, KindBool, KindDate, KindTime, KindTimestamp} {
		v := Null(k)
		require.True(t, v.IsNull(), k.String())
		require.Equal(t, k, v.Kind())
		require.Equal(t, "NULL", v.String())
		require.False(t, v.Equal(Null(KindArray)))
	}
}

func TestValue_Accessors(t *testing.T) {
	n, ok := Int(42).AsInt()
	require.True(t, ok)
	require.Equal(t, int64(42), n)

	_, ok = Null(KindInteger).AsInt()
	require.False(t, ok)

	_, ok = Str("x").AsInt()
	require.False(t, ok)

	f, ok := Real(1.5).AsReal()
	require.True(t, ok)
	require.InDelta(t, 1.5, f, 1e-12)

	s, ok := Str("hello").AsString()
	require.True(t, ok)
	require.Equal(t, "hello", s)

	b, ok := Bool(true).AsBool()
	require.True(t, ok)
	require.True(t, b)
}

func TestValue_TemporalNormalization(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2024, 3, 5, 14, 30, 15, 500, loc)

	d, ok := Date(in).AsTime()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	tm, ok := Time(in).AsTime()
	require.True(t, ok)
	require.Equal(t, 14, tm.Hour())
	require.Equal(t, 30, tm.Minute())
	require.Equal(t, 0, tm.Year())

	ts, ok := Timestamp(in).AsTime()
	require.True(t, ok)
	require.True(t, ts.Equal(in))
	require.Equal(t, time.UTC, ts.Location())

	require.Equal(t, "2024-03-05", Date(in).String())
	require.Equal(t, "14:30:15.0000005", Time(in).String())
	require.Equal(t, "2024-03-05 11:30:15.0000005", Timestamp(in).String())
}

func TestValue_Equal(t *testing.T) {
	require.True(t, Int(1).Equal(Int(1)))
	require.False(t, Int(1).Equal(Int(2)))
	require.False(t, Int(1).Equal(Real(1)))
	require.False(t, Int(1).Equal(Null(KindInteger)))
	require.True(t, Null(KindString).Equal(Null(KindString)))

	a := Timestamp(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	b := Timestamp(time.Date(2024, 1, 1, 13, 0, 0, 0, time.FixedZone("", 3600)))
	require.True(t, a.Equal(b))
}

func TestValue_MarshalJSON(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Int(7), `7`},
		{Real(2.5), `2.5`},
		{Str(`a"b`), `"a\"b"`},
		{Bool(false), `false`},
		{Null(KindInteger), `null`},
		{Date(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)), `"2023-12-31"`},
	}
	for _, tc := range cases {
		got, err := json.Marshal(tc.v)
		require.NoError(t, err)
		require.JSONEq(t, tc.want, string(got))
	}
}

func TestConvert(t *testing.T) {
	v, err := Convert(KindInteger, int32(5))
	require.NoError(t, err)
	require.True(t, v.Equal(Int(5)))

	v, err = Convert(KindReal, int64(3))
	require.NoError(t, err)
	require.True(t, v.Equal(Real(3)))

	v, err = Convert(KindString, []byte("bytes"))
	require.NoError(t, err)
	require.True(t, v.Equal(Str("bytes")))

	v, err = Convert(KindBool, int64(1))
	require.NoError(t, err)
	require.True(t, v.Equal(Bool(true)))

	v, err = Convert(KindDate, "2024-02-29")
	require.NoError(t, err)
	require.True(t, v.Equal(Date(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))))

	v, err = Convert(KindTime, "08:15:00")
	require.NoError(t, err)
	require.True(t, v.Equal(Time(time.Date(1, 1, 1, 8, 15, 0, 0, time.UTC))))

	v, err = Convert(KindTimestamp, nil)
	require.NoError(t, err)
	require.True(t, v.Equal(Null(KindTimestamp)))

	_, err = Convert(KindInteger, "twelve")
	require.Error(t, err)

	_, err = Convert(KindArray, "[]")
	require.Error(t, err)
}
