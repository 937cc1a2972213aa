// Package planner turns a schema diff into the ordered DDL statements of a sync plan.
package planner

import (
	"strings"

	"github.com/stokaro/schemasync/core/sqlutil"
	difftypes "github.com/stokaro/schemasync/migration/schemadiff/types"
)

// TableStatement is a statement that creates or drops one table.
type TableStatement struct {
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// Clause is one ALTER TABLE clause.
type Clause struct {
	Kind difftypes.DeltaKind `json:"kind"`
	SQL  string              `json:"sql"`

	// Previous is the destination definition replaced by a MODIFY COLUMN clause,
	// shown for review only.
	Previous string `json:"previous,omitempty"`
}

// AlterUnit groups the clauses of one altered table, ordered ADD, MODIFY, DROP.
type AlterUnit struct {
	Table   string   `json:"table"`
	Clauses []Clause `json:"clauses"`
}

// Header returns the ALTER TABLE prefix of the unit.
func (u AlterUnit) Header() string {
	return "ALTER TABLE " + sqlutil.QuoteIdentifier(u.Table)
}

// Statements returns one complete ALTER TABLE statement per clause. Each clause
// is executed on its own so that one failing clause does not prevent the others.
func (u AlterUnit) Statements() []string {
	stmts := make([]string, len(u.Clauses))
	for i, cl := range u.Clauses {
		stmts[i] = u.Header() + " " + cl.SQL
	}
	return stmts
}

// Combined renders the unit as a single multi-line ALTER TABLE statement.
func (u AlterUnit) Combined() string {
	lines := []string{u.Header()}
	for i, cl := range u.Clauses {
		lines = append(lines, clauseLine(cl, i == len(u.Clauses)-1))
	}
	return strings.Join(lines, "\n")
}

// Display renders the unit for review: the combined statement with the previous
// definition of every modified column below its clause.
func (u AlterUnit) Display() string {
	lines := []string{u.Header()}
	for i, cl := range u.Clauses {
		lines = append(lines, clauseLine(cl, i == len(u.Clauses)-1))
		if cl.Previous != "" {
			lines = append(lines, "\twas: ["+cl.Previous+"]")
		}
	}
	return strings.Join(lines, "\n")
}

func clauseLine(cl Clause, last bool) string {
	if last {
		return cl.SQL
	}
	return cl.SQL + ","
}

// Plan holds the statements needed to bring the destination in line with the
// source, in execution order: creates, drops, alters.
type Plan struct {
	Creates []TableStatement `json:"creates"`
	Drops   []TableStatement `json:"drops"`
	Alters  []AlterUnit      `json:"alters"`
}

// CreateStatements returns the CREATE TABLE statements.
func (p *Plan) CreateStatements() []string {
	return sqlOf(p.Creates)
}

// DropStatements returns the DROP TABLE statements.
func (p *Plan) DropStatements() []string {
	return sqlOf(p.Drops)
}

// AlterStatements returns the executable ALTER TABLE statements, one per clause.
func (p *Plan) AlterStatements() []string {
	var stmts []string
	for _, u := range p.Alters {
		stmts = append(stmts, u.Statements()...)
	}
	return stmts
}

// Count returns the number of statement groups: one per created table, one per
// dropped table and one per altered table.
func (p *Plan) Count() int {
	return len(p.Creates) + len(p.Drops) + len(p.Alters)
}

// Empty reports whether the plan contains nothing to do.
func (p *Plan) Empty() bool {
	return p.Count() == 0
}

// StatementWarning is a generated statement that the MySQL parser rejected.
type StatementWarning struct {
	Statement string
	Err       error
}

// Validate parses every executable statement of the plan and returns the ones
// that do not parse. It never modifies the plan.
func (p *Plan) Validate() []StatementWarning {
	var warnings []StatementWarning
	all := append(append(p.CreateStatements(), p.DropStatements()...), p.AlterStatements()...)
	for _, stmt := range all {
		if err := sqlutil.Validate(stmt); err != nil {
			warnings = append(warnings, StatementWarning{Statement: stmt, Err: err})
		}
	}
	return warnings
}

func sqlOf(stmts []TableStatement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.SQL
	}
	return out
}
