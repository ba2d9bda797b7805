package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when a temporal column arrives as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	DateLayout,
	TimeLayout,
	"15:04",
}

// Convert turns a driver-level Go value into a Value of the given kind.
// nil always yields the null value of that kind.
func Convert(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Null(kind), nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch kind {
	case KindInteger:
		switch x := raw.(type) {
		case int64:
			return Int(x), nil
		case int:
			return Int(int64(x)), nil
		case int32:
			return Int(int64(x)), nil
		case int16:
			return Int(int64(x)), nil
		case bool:
			if x {
				return Int(1), nil
			}
			return Int(0), nil
		case float64:
			if x == float64(int64(x)) {
				return Int(int64(x)), nil
			}
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("parse integer %q: %w", x, err)
			}
			return Int(n), nil
		}

	case KindReal:
		switch x := raw.(type) {
		case float64:
			return Real(x), nil
		case float32:
			return Real(float64(x)), nil
		case int64:
			return Real(float64(x)), nil
		case int32:
			return Real(float64(x)), nil
		case int:
			return Real(float64(x)), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return Value{}, fmt.Errorf("parse real %q: %w", x, err)
			}
			return Real(f), nil
		}

	case KindString:
		switch x := raw.(type) {
		case string:
			return Str(x), nil
		case int64:
			return Str(strconv.FormatInt(x, 10)), nil
		case float64:
			return Str(strconv.FormatFloat(x, 'g', -1, 64)), nil
		case bool:
			return Str(strconv.FormatBool(x)), nil
		case time.Time:
			return Str(x.Format(TimestampLayout)), nil
		}

	case KindBool:
		switch x := raw.(type) {
		case bool:
			return Bool(x), nil
		case int64:
			return Bool(x != 0), nil
		case int32:
			return Bool(x != 0), nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return Value{}, fmt.Errorf("parse bool %q: %w", x, err)
			}
			return Bool(b), nil
		}

	case KindDate, KindTime, KindTimestamp:
		var t time.Time
		switch x := raw.(type) {
		case time.Time:
			t = x
		case string:
			parsed, err := parseTime(x)
			if err != nil {
				return Value{}, err
			}
			t = parsed
		default:
			return Value{}, fmt.Errorf("cannot convert %T to %s", raw, kind)
		}
		switch kind {
		case KindDate:
			return Date(t), nil
		case KindTime:
			return Time(t), nil
		default:
			return Timestamp(t), nil
		}

	case KindArray, KindObject:
		return Value{}, fmt.Errorf("%s values are not supported", kind)
	}

	return Value{}, fmt.Errorf("cannot convert %T to %s", raw, kind)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unrecognized layout", s)
}
