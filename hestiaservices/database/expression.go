package database

import (
	"regexp"
	"strings"
)

// Expression is a fragment of SQL that is emitted verbatim. It is never quoted
// and its bindings are placed where the fragment appears.
type Expression struct {
	SQL      string
	Bindings []any
}

func Raw(sql string, bindings ...any) Expression {
	return Expression{
		SQL:      sql,
		Bindings: bindings,
	}
}

var aggregateKeywordFinder = regexp.MustCompile(`(?i)^\s*(count|sum|avg|min|max)(\s|\()`)

// looksLikeExpression reports whether a column string should bypass quoting.
// Anything with parentheses or starting with an aggregate keyword is treated as
// raw SQL. A real column name that matches is misclassified; use Raw for
// anything that is not a plain identifier.
func looksLikeExpression(value string) bool {
	if strings.ContainsAny(value, "()") {
		return true
	}

	return aggregateKeywordFinder.MatchString(value)
}
