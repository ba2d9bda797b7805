package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the variant carried by a Value.
type Kind int

const (
	KindInteger Kind = iota
	KindReal
	KindString
	KindBool
	KindDate
	KindTime
	KindTimestamp

	// Composite placeholders. No backend binds or decodes them yet.
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindTimestamp:
		return "timestamp"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Layouts used to render and exchange temporal values as text.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05.999999999"
	TimestampLayout = "2006-01-02 15:04:05.999999999"
)

// Value is a nullable, tagged column value. Only the payload matching the
// kind is meaningful; a null value keeps its kind so the column type
// survives a NULL cell.
type Value struct {
	kind  Kind
	valid bool

	i int64
	f float64
	s string
	b bool
	t time.Time
}

// Int returns a non-null Integer value.
func Int(v int64) Value { return Value{kind: KindInteger, valid: true, i: v} }

// Real returns a non-null Real value.
func Real(v float64) Value { return Value{kind: KindReal, valid: true, f: v} }

// Str returns a non-null String value.
func Str(v string) Value { return Value{kind: KindString, valid: true, s: v} }

// Bool returns a non-null Bool value.
func Bool(v bool) Value { return Value{kind: KindBool, valid: true, b: v} }

// Date returns a Date value holding the calendar day of t at midnight UTC.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, valid: true, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Time returns a Time value holding the clock reading of t on 0000-01-01 UTC.
func Time(t time.Time) Value {
	return Value{kind: KindTime, valid: true, t: time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

// Timestamp returns a Timestamp value normalized to UTC.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, valid: true, t: t.UTC()} }

// Array returns the array placeholder.
func Array() Value { return Value{kind: KindArray} }

// Object returns the object placeholder.
func Object() Value { return Value{kind: KindObject} }

// Null returns the null value of the given kind.
func Null(kind Kind) Value { return Value{kind: kind} }

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return !v.valid }

// AsInt returns the integer payload. ok is false for null or non-integer values.
func (v Value) AsInt() (n int64, ok bool) {
	return v.i, v.valid && v.kind == KindInteger
}

// AsReal returns the float payload.
func (v Value) AsReal() (f float64, ok bool) {
	return v.f, v.valid && v.kind == KindReal
}

// AsString returns the text payload.
func (v Value) AsString() (s string, ok bool) {
	return v.s, v.valid && v.kind == KindString
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (b bool, ok bool) {
	return v.b, v.valid && v.kind == KindBool
}

// AsTime returns the payload of a Date, Time or Timestamp value.
func (v Value) AsTime() (t time.Time, ok bool) {
	switch v.kind {
	case KindDate, KindTime, KindTimestamp:
		return v.t, v.valid
	}
	return time.Time{}, false
}

// Equal reports whether both values have the same kind, null-ness and payload.
// Temporal payloads compare with time.Time.Equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindReal:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindDate, KindTime, KindTimestamp:
		return v.t.Equal(o.t)
	case KindArray, KindObject:
		return true
	}
	return false
}

// String renders the value for display. Null renders as NULL.
func (v Value) String() string {
	if !v.valid {
		return "NULL"
	}
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindTimestamp:
		return v.t.Format(TimestampLayout)
	case KindArray:
		return "[]"
	case KindObject:
		return "{}"
	}
	return fmt.Sprintf("<%s>", v.kind)
}

// MarshalJSON encodes the payload as its natural JSON type; null as null and
// temporal values as their display text.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	switch v.kind {
	case KindInteger:
		return json.Marshal(v.i)
	case KindReal:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.b)
	case KindDate, KindTime, KindTimestamp:
		return json.Marshal(v.String())
	case KindArray:
		return []byte("[]"), nil
	case KindObject:
		return []byte("{}"), nil
	}
	return nil, fmt.Errorf("marshal value: unknown kind %d", v.kind)
}
