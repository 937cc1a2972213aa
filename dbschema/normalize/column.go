// Package normalize turns raw column metadata into canonical column descriptors.
//
// The canonical definition of a column is the text used both to compare columns
// across databases and to build ADD COLUMN / MODIFY COLUMN clauses, so the two
// can never disagree:
//
//	`<field>` <type> [NOT NULL] [DEFAULT <value>] [<extra>]
//
// Tokens are joined by single spaces and empty tokens are left out.
package normalize

import (
	"regexp"
	"strings"

	"github.com/stokaro/schemasync/config"
	"github.com/stokaro/schemasync/core/sqlutil"
	"github.com/stokaro/schemasync/dbschema/types"
)

const (
	notNullToken      = "NOT NULL"
	nullValue         = "NULL"
	defaultGenerated  = "DEFAULT_GENERATED"
	defaultClauseHead = "DEFAULT "
)

var (
	widthSpecifier  = regexp.MustCompile(`\(.+?\)`)
	temporalKeyword = regexp.MustCompile(`^(?i)(current_timestamp|current_date|current_time|localtime|localtimestamp|now|utc_timestamp)(\(\d*\))?$`)
)

// Column canonicalizes one DESCRIBE row according to the sync options.
// A nil opts behaves like config.DefaultSyncOptions().
func Column(raw types.RawColumn, opts *config.SyncOptions) types.Column {
	if opts == nil {
		opts = config.DefaultSyncOptions()
	}

	sqlType := raw.Type
	if opts.IgnoreColumnWidths {
		sqlType = StripWidths(sqlType)
	}

	extra := Extra(raw.Extra)

	var defaultClause *string
	if clause, ok := DefaultClause(raw.Default, raw.Type, raw.Nullable, raw.Extra, opts.ExplicitDefaultsOnly); ok {
		defaultClause = &clause
	}

	tokens := []string{sqlutil.QuoteIdentifier(raw.Field), sqlType}
	if !raw.Nullable {
		tokens = append(tokens, notNullToken)
	}
	if defaultClause != nil {
		tokens = append(tokens, *defaultClause)
	}
	tokens = append(tokens, extra)

	return types.NewColumn(raw.Field, sqlType, raw.Nullable, defaultClause, extra, join(tokens))
}

// StripWidths removes every parenthesized specifier from a column type:
// decimal(10,2) becomes decimal and int(10) unsigned becomes int unsigned.
func StripWidths(sqlType string) string {
	if !strings.Contains(sqlType, "(") {
		return sqlType
	}
	return join(strings.Fields(widthSpecifier.ReplaceAllString(sqlType, "")))
}

// DefaultClause renders the DEFAULT clause of a column of type sqlType and
// reports whether the column has one. A nullable column without a default is
// rendered as DEFAULT NULL unless explicitOnly is set.
func DefaultClause(value *string, sqlType string, nullable bool, rawExtra string, explicitOnly bool) (string, bool) {
	switch {
	case value != nil:
		return defaultClauseHead + DefaultValue(*value, sqlType, rawExtra), true
	case nullable && !explicitOnly:
		return defaultClauseHead + nullValue, true
	default:
		return "", false
	}
}

// DefaultValue renders a DESCRIBE default of a column of type sqlType as SQL.
//
// DESCRIBE reports defaults unquoted, so the column type decides the form:
//   - expression defaults (DEFAULT_GENERATED) are parenthesized, except the
//     temporal keywords MySQL reports for CURRENT_TIMESTAMP defaults
//   - numeric and bit columns take the value as is
//   - temporal columns take CURRENT_TIMESTAMP and its synonyms as is and quote
//     anything else
//   - every other type (strings, enum, set, binary, json) is quoted, so a
//     string default of 007, NULL or now stays a string
func DefaultValue(value, sqlType, rawExtra string) string {
	keyword := temporalKeyword.MatchString(value)

	if strings.Contains(strings.ToUpper(rawExtra), defaultGenerated) {
		if keyword {
			return value
		}
		return "(" + value + ")"
	}

	switch typeFamily(sqlType) {
	case familyNumeric, familyBit:
		return value
	case familyTemporal:
		if keyword {
			return value
		}
	}
	return quoteString(value)
}

type family int

const (
	familyString family = iota
	familyNumeric
	familyBit
	familyTemporal
)

var families = map[string]family{
	"tinyint":   familyNumeric,
	"smallint":  familyNumeric,
	"mediumint": familyNumeric,
	"int":       familyNumeric,
	"integer":   familyNumeric,
	"bigint":    familyNumeric,
	"decimal":   familyNumeric,
	"dec":       familyNumeric,
	"numeric":   familyNumeric,
	"fixed":     familyNumeric,
	"float":     familyNumeric,
	"double":    familyNumeric,
	"real":      familyNumeric,
	"bool":      familyNumeric,
	"boolean":   familyNumeric,
	"bit":       familyBit,
	"date":      familyTemporal,
	"datetime":  familyTemporal,
	"timestamp": familyTemporal,
	"time":      familyTemporal,
	"year":      familyTemporal,
}

// typeFamily classifies a column type by its base name, e.g. "int" for
// "int(10) unsigned". Unknown types are treated as strings.
func typeFamily(sqlType string) family {
	base := strings.ToLower(strings.TrimSpace(sqlType))
	if i := strings.IndexAny(base, "( "); i >= 0 {
		base = base[:i]
	}
	return families[base]
}

// Extra cleans the Extra column of DESCRIBE output. The DEFAULT_GENERATED
// marker is informational and not valid in a column definition.
func Extra(extra string) string {
	fields := strings.Fields(extra)
	kept := fields[:0]
	for _, f := range fields {
		if strings.EqualFold(f, defaultGenerated) {
			continue
		}
		kept = append(kept, f)
	}
	return join(kept)
}

func quoteString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "'", "''")
	return "'" + value + "'"
}

func join(tokens []string) string {
	nonEmpty := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			nonEmpty = append(nonEmpty, tok)
		}
	}
	return strings.Join(nonEmpty, " ")
}
