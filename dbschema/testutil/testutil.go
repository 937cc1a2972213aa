// Package testutil provides an in-memory database for tests that need a
// catalog or executor without a MySQL server.
package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/stokaro/schemasync/dbschema/types"
)

// Interface assertions
var (
	_ types.Database   = (*FakeDatabase)(nil)
	_ types.Transactor = (*FakeDatabase)(nil)
)

// ExecFailure makes Execute fail with Err for statements containing Match.
type ExecFailure struct {
	Match string
	Err   error
}

type fakeTable struct {
	name    string
	create  string
	columns []types.RawColumn
}

// FakeDatabase is an in-memory types.Database. Statements passed to Execute are
// recorded, not interpreted.
type FakeDatabase struct {
	tables []fakeTable

	// ListErr is returned by ListTables when set.
	ListErr error
	// DescribeErrs maps table names to errors returned by DescribeColumns.
	DescribeErrs map[string]error
	// CreateErrs maps table names to errors returned by CaptureCreateStatement.
	CreateErrs map[string]error
	// ExecErrs are checked by Execute in order; the first match wins.
	ExecErrs []ExecFailure

	Executed  []string
	Commits   int
	Rollbacks int
}

// NewFakeDatabase creates an empty fake database.
func NewFakeDatabase() *FakeDatabase {
	return &FakeDatabase{
		DescribeErrs: make(map[string]error),
		CreateErrs:   make(map[string]error),
	}
}

// AddTable registers a table. An empty create statement is replaced by a
// minimal CREATE TABLE built from the columns.
func (f *FakeDatabase) AddTable(name, create string, columns ...types.RawColumn) *FakeDatabase {
	if create == "" {
		create = fmt.Sprintf("CREATE TABLE `%s` (\n  %d columns\n) ENGINE=InnoDB", name, len(columns))
	}
	f.tables = append(f.tables, fakeTable{name: name, create: create, columns: columns})
	return f
}

// FailExec makes statements containing match fail with err. Earlier
// registrations take precedence.
func (f *FakeDatabase) FailExec(match string, err error) *FakeDatabase {
	f.ExecErrs = append(f.ExecErrs, ExecFailure{Match: match, Err: err})
	return f
}

// ListTables returns the registered table names in registration order.
func (f *FakeDatabase) ListTables(_ context.Context) ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	names := make([]string, len(f.tables))
	for i, t := range f.tables {
		names[i] = t.name
	}
	return names, nil
}

// DescribeColumns returns the registered columns of a table.
func (f *FakeDatabase) DescribeColumns(_ context.Context, table string) ([]types.RawColumn, error) {
	if err := f.DescribeErrs[table]; err != nil {
		return nil, err
	}
	for _, t := range f.tables {
		if t.name == table {
			return t.columns, nil
		}
	}
	return nil, fmt.Errorf("table %s doesn't exist", table)
}

// CaptureCreateStatement returns the registered CREATE TABLE text of a table.
func (f *FakeDatabase) CaptureCreateStatement(_ context.Context, table string) (string, error) {
	if err := f.CreateErrs[table]; err != nil {
		return "", err
	}
	for _, t := range f.tables {
		if t.name == table {
			return t.create, nil
		}
	}
	return "", fmt.Errorf("table %s doesn't exist", table)
}

// Execute records the statement and returns the error of the first
// ExecFailure whose Match occurs in it.
func (f *FakeDatabase) Execute(_ context.Context, stmt string) error {
	f.Executed = append(f.Executed, stmt)
	for _, fail := range f.ExecErrs {
		if strings.Contains(stmt, fail.Match) {
			return fail.Err
		}
	}
	return nil
}

// RunInTransaction calls fn with the fake itself and counts commits and rollbacks.
func (f *FakeDatabase) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx types.Database) error) error {
	if err := fn(ctx, f); err != nil {
		f.Rollbacks++
		return err
	}
	f.Commits++
	return nil
}

// NotNull returns a NOT NULL column without a default.
func NotNull(field, sqlType string) types.RawColumn {
	return types.RawColumn{Field: field, Type: sqlType}
}

// Nullable returns a nullable column without a default.
func Nullable(field, sqlType string) types.RawColumn {
	return types.RawColumn{Field: field, Type: sqlType, Nullable: true}
}

// WithDefault returns the column with an explicit default value.
func WithDefault(col types.RawColumn, value string) types.RawColumn {
	col.Default = &value
	return col
}

// WithExtra returns the column with the given Extra attributes.
func WithExtra(col types.RawColumn, extra string) types.RawColumn {
	col.Extra = extra
	return col
}
