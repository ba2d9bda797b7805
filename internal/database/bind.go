package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// PlaceholderStyle is the positional parameter syntax of a backend.
type PlaceholderStyle int

const (
	// StyleQuestion covers SQLite parameters: ?, ?NNN and $NNN. Named
	// parameters (:name, @name, $name) are recognised but cannot be bound
	// from positional arguments.
	StyleQuestion PlaceholderStyle = iota
	// StyleDollar covers PostgreSQL parameters: $1, $2, ...
	StyleDollar
)

// CheckArity fails with a *BindError when the statement's parameter count
// differs from the number of supplied arguments, or when it uses a named
// parameter.
func CheckArity(query string, style PlaceholderStyle, got int) error {
	want, named := scanPlaceholders(query, style)
	if named != "" {
		return &BindError{
			Expected: want,
			Got:      got,
			Index:    -1,
			Reason:   fmt.Sprintf("named parameter %s is not supported, use ? or ?NNN", named),
		}
	}
	if want != got {
		return &BindError{Expected: want, Got: got, Index: -1}
	}
	return nil
}

// CountPlaceholders returns the number of parameters a statement declares,
// which is the highest parameter index it uses. String literals, quoted
// identifiers and comments are skipped.
func CountPlaceholders(query string, style PlaceholderStyle) int {
	n, _ := scanPlaceholders(query, style)
	return n
}

// scanPlaceholders also returns the first named parameter it meets.
func scanPlaceholders(query string, style PlaceholderStyle) (n int, firstNamed string) {
	named := make(map[string]struct{})

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' && style == StyleDollar && isEscapePrefix(query, i):
			i = skipEscaped(query, i)

		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(query, i, c)

		case c == '[' && style == StyleQuestion:
			i = skipPast(query, i+1, "]")

		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			i = skipPast(query, i+2, "\n")

		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			i = skipPast(query, i+2, "*/")

		case style == StyleQuestion && c == '?':
			j := scanDigits(query, i+1)
			if j > i+1 {
				idx, _ := strconv.Atoi(query[i+1 : j])
				n = max(n, idx)
			} else {
				n++
			}
			i = j

		case style == StyleQuestion && c == '$' && scanDigits(query, i+1) > i+1:
			// $NNN binds the NNN-th argument, like ?NNN.
			j := scanDigits(query, i+1)
			idx, _ := strconv.Atoi(query[i+1 : j])
			n = max(n, idx)
			i = j

		case style == StyleQuestion && (c == ':' || c == '@' || c == '$') && i+1 < len(query) && isIdentPart(query[i+1]):
			j := i + 1
			for j < len(query) && isIdentPart(query[j]) {
				j++
			}
			name := query[i:j]
			if _, seen := named[name]; !seen {
				named[name] = struct{}{}
				n++
			}
			if firstNamed == "" {
				firstNamed = name
			}
			i = j

		case style == StyleDollar && c == '$':
			j := scanDigits(query, i+1)
			if j > i+1 {
				idx, _ := strconv.Atoi(query[i+1 : j])
				n = max(n, idx)
				i = j
				continue
			}
			// Dollar-quoted string: $$...$$ or $tag$...$tag$.
			k := i + 1
			for k < len(query) && isIdentPart(query[k]) {
				k++
			}
			if k < len(query) && query[k] == '$' {
				tag := query[i : k+1]
				i = skipPast(query, k+1, tag)
				continue
			}
			i++

		default:
			i++
		}
	}
	return n, firstNamed
}

// Rebind rewrites ? placeholders into the backend's own syntax.
func Rebind(backend Backend, query string) string {
	if backend == Postgres {
		return sqlx.Rebind(sqlx.DOLLAR, query)
	}
	return query
}

func skipQuoted(s string, i int, quote byte) int {
	j := i + 1
	for j < len(s) {
		if s[j] == quote {
			if j+1 < len(s) && s[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return len(s)
}

// isEscapePrefix reports whether the quote at i opens a PostgreSQL E'...'
// string.
func isEscapePrefix(s string, i int) bool {
	if i == 0 || (s[i-1] != 'E' && s[i-1] != 'e') {
		return false
	}
	return i == 1 || !isIdentPart(s[i-2])
}

// skipEscaped skips an E'...' literal, where a backslash escapes the next byte.
func skipEscaped(s string, i int) int {
	j := i + 1
	for j < len(s) {
		switch {
		case s[j] == '\\':
			j += 2
		case s[j] == '\'' && j+1 < len(s) && s[j+1] == '\'':
			j += 2
		case s[j] == '\'':
			return j + 1
		default:
			j++
		}
	}
	return len(s)
}

func skipPast(s string, from int, end string) int {
	if from >= len(s) {
		return len(s)
	}
	idx := strings.Index(s[from:], end)
	if idx < 0 {
		return len(s)
	}
	return from + idx + len(end)
}

func scanDigits(s string, from int) int {
	j := from
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	return j
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
