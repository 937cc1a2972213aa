// Package sqlutil contains small helpers for building and checking MySQL statement text.
package sqlutil

import (
	"fmt"
	"strings"

	"vitess.io/vitess/go/vt/sqlparser"
)

// QuoteIdentifier wraps a table or column name in backticks, doubling any
// backtick inside the name.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Terminate returns the statement with exactly one trailing semicolon.
func Terminate(stmt string) string {
	stmt = strings.TrimRight(strings.TrimSpace(stmt), ";")
	return stmt + ";"
}

// Validate parses a single statement with the vitess MySQL grammar and returns
// the parse error, if any.
func Validate(stmt string) error {
	parser := sqlparser.NewTestParser()
	if _, err := parser.Parse(strings.TrimRight(strings.TrimSpace(stmt), ";")); err != nil {
		return fmt.Errorf("statement does not parse: %w", err)
	}
	return nil
}
