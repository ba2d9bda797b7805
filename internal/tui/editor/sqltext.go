package editor

import (
	"strings"
	"unicode"
)

// sqlKeywords are uppercased by FormatKeywords.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"insert": true, "into": true, "update": true, "delete": true,
	"create": true, "drop": true, "alter": true, "table": true,
	"index": true, "join": true, "inner": true, "outer": true,
	"left": true, "right": true, "cross": true, "on": true,
	"not": true, "in": true, "is": true, "null": true, "like": true,
	"order": true, "by": true, "group": true, "having": true,
	"limit": true, "offset": true, "as": true, "distinct": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"between": true, "exists": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "values": true,
	"set": true, "begin": true, "commit": true, "rollback": true,
	"union": true, "all": true, "asc": true, "desc": true,
	"primary": true, "key": true, "foreign": true, "references": true,
	"cascade": true, "restrict": true, "default": true,
	"true": true, "false": true, "ilike": true, "returning": true,
	"with": true, "pragma": true, "explain": true, "show": true,
	"integer": true, "text": true, "real": true, "boolean": true,
}

// tableKeywords are followed by a table name.
var tableKeywords = map[string]bool{
	"FROM": true, "JOIN": true, "INTO": true, "UPDATE": true, "TABLE": true,
}

// FormatKeywords uppercases SQL keywords outside string literals, quoted
// identifiers and line comments.
func FormatKeywords(sql string) string {
	var out, word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if sqlKeywords[strings.ToLower(w)] {
			w = strings.ToUpper(w)
		}
		out.WriteString(w)
		word.Reset()
	}

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '\'' || ch == '"':
			flush()
			j := i + 1
			for j < len(runes) && runes[j] != ch {
				j++
			}
			end := min(j, len(runes)-1)
			out.WriteString(string(runes[i : end+1]))
			i = end
		case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
			flush()
			j := i
			for j < len(runes) && runes[j] != '\n' {
				j++
			}
			out.WriteString(string(runes[i:j]))
			i = j - 1
		case unicode.IsLetter(ch) || ch == '_' || (word.Len() > 0 && unicode.IsDigit(ch)):
			word.WriteRune(ch)
		default:
			flush()
			out.WriteRune(ch)
		}
	}
	flush()
	return out.String()
}

// lastWord returns the identifier-like token at the end of s.
func lastWord(s string) string {
	i := len(s)
	for i > 0 && isIdentChar(rune(s[i-1])) {
		i--
	}
	return s[i:]
}

func isIdentChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '.'
}

// expectsTable reports whether the word being typed at the end of s is in a
// table position: right after FROM, JOIN, INTO, UPDATE or TABLE, or further
// along a comma-separated list that started with one of them.
func expectsTable(s string) bool {
	before := strings.TrimSuffix(s, lastWord(s))
	fields := strings.Fields(strings.ReplaceAll(before, ",", " , "))
	i := len(fields) - 1
	if i < 0 {
		return false
	}
	if tableKeywords[strings.ToUpper(fields[i])] {
		return true
	}
	// FROM a, b, <word>
	for i >= 2 && fields[i] == "," {
		if tableKeywords[strings.ToUpper(fields[i-2])] {
			return true
		}
		i -= 2
	}
	return false
}

// matchTables returns the names starting with prefix, case-insensitively,
// in their given order.
func matchTables(names []string, prefix string) []string {
	lower := strings.ToLower(prefix)
	var out []string
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			out = append(out, name)
		}
	}
	return out
}
