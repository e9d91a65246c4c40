package utils

import (
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
	PlaceholderAtP
)

// Prepare rewrites positional ? placeholders into the style the target driver
// expects. Question marks inside quoted literals or quoted identifiers are left
// alone. Square brackets only quote identifiers for the @p style, elsewhere
// they are array syntax.
func Prepare(statement string, style PlaceholderStyle) string {
	statement = strings.TrimSpace(statement)

	if style == PlaceholderQuestion {
		return statement
	}

	builder := strings.Builder{}
	builder.Grow(len(statement) + 8)

	counter := 0
	scan(statement, style, func(r rune, placeholder bool) {
		if !placeholder {
			builder.WriteRune(r)
			return
		}

		counter++
		if style == PlaceholderDollar {
			builder.WriteString("$")
		} else {
			builder.WriteString("@p")
		}
		builder.WriteString(strconv.Itoa(counter))
	})

	return builder.String()
}

// CountPlaceholders returns the number of ? placeholders outside of quoted
// literals and identifiers.
func CountPlaceholders(statement string, style PlaceholderStyle) int {
	count := 0
	scan(statement, style, func(_ rune, placeholder bool) {
		if placeholder {
			count++
		}
	})

	return count
}

func scan(statement string, style PlaceholderStyle, visit func(r rune, placeholder bool)) {
	var closing rune
	inQuote := false

	for _, r := range statement {
		if inQuote {
			visit(r, false)
			if r == closing {
				inQuote = false
			}
			continue
		}

		switch {
		case r == '\'' || r == '"' || r == '`':
			inQuote = true
			closing = r
			visit(r, false)
		case r == '[' && style == PlaceholderAtP:
			inQuote = true
			closing = ']'
			visit(r, false)
		case r == '?':
			visit(r, true)
		default:
			visit(r, false)
		}
	}
}
