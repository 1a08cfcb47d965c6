// Package naming holds identifier helpers shared by every provider.
package naming

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// LikeEscape is the escape character used in generated LIKE patterns.
const LikeEscape = '!'

// Normalize trims whitespace and any surrounding quote characters from an identifier.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	for len(name) >= 2 {
		first, last := name[0], name[len(name)-1]
		if (first == '"' && last == '"') || (first == '`' && last == '`') || (first == '[' && last == ']') {
			name = strings.TrimSpace(name[1 : len(name)-1])
			continue
		}
		break
	}
	return name
}

// ToLikePattern converts a `*`/`?` wildcard filter to a LIKE pattern escaped with LikeEscape.
// An empty filter matches everything.
func ToLikePattern(filter string) string {
	if filter == "" {
		return "%"
	}
	var b strings.Builder
	for _, r := range filter {
		switch r {
		case LikeEscape, '%', '_':
			b.WriteRune(LikeEscape)
			b.WriteRune(r)
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeLike escapes a literal name for use as an exact LIKE pattern.
func EscapeLike(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == LikeEscape || r == '%' || r == '_' {
			b.WriteRune(LikeEscape)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasWildcard reports whether filter contains `*` or `?`.
func HasWildcard(filter string) bool {
	return strings.ContainsAny(filter, "*?")
}

// Matches reports whether name matches the wildcard filter, ignoring case.
// An empty filter matches everything.
func Matches(name, filter string) bool {
	if filter == "" {
		return true
	}
	return match([]rune(strings.ToLower(name)), []rune(strings.ToLower(filter)))
}

func match(s, p []rune) bool {
	// Iterative glob with single backtrack point for the last star.
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			si++
			pi++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// Filter returns the names that match filter, preserving order.
func Filter(names []string, filter string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if Matches(n, filter) {
			out = append(out, n)
		}
	}
	return out
}

// EqualFold compares two identifiers after normalization, ignoring case.
func EqualFold(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// Sanitize replaces characters that are not letters, digits or underscores.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// Truncate shortens name to max characters, keeping it unique with a hash suffix.
func Truncate(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	if max <= len(suffix) {
		return suffix[len(suffix)-max:]
	}
	return name[:max-len(suffix)] + suffix
}

func join(prefix, table string, columns ...string) string {
	parts := []string{prefix, table}
	parts = append(parts, columns...)
	return Sanitize(strings.Join(parts, "_"))
}

// PrimaryKeyName returns the generated primary key constraint name.
func PrimaryKeyName(table string) string {
	return join("pk", table)
}

// UniqueName returns the generated unique constraint name.
func UniqueName(table string, columns ...string) string {
	return join("uc", table, columns...)
}

// CheckName returns the generated check constraint name.
func CheckName(table, column string) string {
	if column == "" {
		return join("ck", table)
	}
	return join("ck", table, column)
}

// DefaultName returns the generated default constraint name.
func DefaultName(table, column string) string {
	return join("df", table, column)
}

// ForeignKeyName returns the generated foreign key constraint name.
func ForeignKeyName(table string, columns []string, refTable string, refColumns []string) string {
	parts := append(append([]string{}, columns...), refTable)
	parts = append(parts, refColumns...)
	return join("fk", table, parts...)
}

// IndexName returns the generated index name.
func IndexName(table string, columns ...string) string {
	return join("ix", table, columns...)
}
