package types

import "context"

// RawColumn is one row of MySQL DESCRIBE output, before canonicalization.
type RawColumn struct {
	Field    string  `json:"field"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"` // DESCRIBE reports Null = YES
	Default  *string `json:"default"`  // Can be NULL
	Extra    string  `json:"extra"`
}

// Column is a canonicalized column descriptor. Its definition is computed once
// by the normalizer and two columns are equal iff their definitions are equal.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default,omitempty"` // rendered DEFAULT clause, nil if none
	Extra      string  `json:"extra"`
	definition string
}

// NewColumn builds a Column with a precomputed canonical definition.
func NewColumn(name, sqlType string, nullable bool, defaultClause *string, extra, definition string) Column {
	return Column{
		Name:       name,
		Type:       sqlType,
		Nullable:   nullable,
		Default:    defaultClause,
		Extra:      extra,
		definition: definition,
	}
}

// Definition returns the canonical rendering, e.g. "`price` decimal(10,2) NOT NULL".
func (c Column) Definition() string {
	return c.definition
}

// Equal reports whether two columns have byte-identical definitions.
func (c Column) Equal(other Column) bool {
	return c.definition == other.definition
}

// Table is a table's columns in the database's native order.
type Table struct {
	Name    string
	columns []Column
	index   map[string]int
}

// NewTable creates an empty table.
func NewTable(name string) *Table {
	return &Table{
		Name:  name,
		index: make(map[string]int),
	}
}

// AddColumn appends a column. A column with an existing name replaces the
// earlier one in place.
func (t *Table) AddColumn(col Column) {
	if i, ok := t.index[col.Name]; ok {
		t.columns[i] = col
		return
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
}

// Column looks a column up by field name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Columns returns the columns in insertion order. The slice must not be modified.
func (t *Table) Columns() []Column {
	return t.columns
}

// Len returns the number of columns.
func (t *Table) Len() int {
	return len(t.columns)
}

// Snapshot is the table structure of one database at one point in time.
// Tables keep the order in which they were added.
type Snapshot struct {
	tables []*Table
	index  map[string]int
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{index: make(map[string]int)}
}

// AddTable appends a table, replacing any earlier table with the same name.
func (s *Snapshot) AddTable(t *Table) {
	if i, ok := s.index[t.Name]; ok {
		s.tables[i] = t
		return
	}
	s.index[t.Name] = len(s.tables)
	s.tables = append(s.tables, t)
}

// Table looks a table up by name.
func (s *Snapshot) Table(name string) (*Table, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.tables[i], true
}

// Has reports whether the snapshot contains the named table.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Tables returns the tables in insertion order. The slice must not be modified.
func (s *Snapshot) Tables() []*Table {
	return s.tables
}

// TableNames returns the table names in insertion order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, len(s.tables))
	for i, t := range s.tables {
		names[i] = t.Name
	}
	return names
}

// Catalog is the read side of a database connection.
type Catalog interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeColumns(ctx context.Context, table string) ([]RawColumn, error)
	CaptureCreateStatement(ctx context.Context, table string) (string, error)
}

// Executor runs a single statement against a database.
type Executor interface {
	Execute(ctx context.Context, stmt string) error
}

// Database is a connection that can be both read and written.
type Database interface {
	Catalog
	Executor
}

// Transactor runs fn inside a transaction on the database, committing when fn
// returns nil and rolling back otherwise. fn receives a Database bound to the
// transaction.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Database) error) error
}
