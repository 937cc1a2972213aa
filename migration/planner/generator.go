package planner

import (
	"context"
	"fmt"

	"github.com/stokaro/schemasync/core/sqlutil"
	"github.com/stokaro/schemasync/migration/collation"
	difftypes "github.com/stokaro/schemasync/migration/schemadiff/types"
)

// CreateStatementSource provides the CREATE TABLE text of source tables.
type CreateStatementSource interface {
	CaptureCreateStatement(ctx context.Context, table string) (string, error)
}

// Generator converts schema differences into a Plan.
//
// # Statement Forms
//
//   - New tables: the source's own CREATE TABLE text, passed through the collation rewriter
//   - Dropped tables: DROP TABLE `name`
//   - Altered tables: one AlterUnit per table with ADD COLUMN, MODIFY COLUMN and
//     DROP COLUMN clauses, in that order
//
// ADD and MODIFY clauses reuse the canonical column definition, so the DDL
// always matches what was compared.
//
// # Usage Example
//
//	rw, _ := collation.New(opts)
//	gen := planner.NewGenerator(sourceConn, rw)
//	plan, err := gen.Generate(ctx, diff)
type Generator struct {
	source   CreateStatementSource
	rewriter *collation.Rewriter
}

// NewGenerator creates a generator reading CREATE TABLE text from source.
// A nil rewriter leaves CREATE TABLE statements unchanged.
func NewGenerator(source CreateStatementSource, rewriter *collation.Rewriter) *Generator {
	if rewriter == nil {
		rewriter, _ = collation.New(nil)
	}
	return &Generator{
		source:   source,
		rewriter: rewriter,
	}
}

// Generate builds the plan for a diff. It fails only when the CREATE TABLE text
// of a new table cannot be captured.
func (g *Generator) Generate(ctx context.Context, diff *difftypes.SchemaDiff) (*Plan, error) {
	plan := &Plan{}

	for _, table := range diff.NewTables {
		create, err := g.source.CaptureCreateStatement(ctx, table.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to capture create statement for table %s: %w", table.Name, err)
		}
		plan.Creates = append(plan.Creates, TableStatement{
			Table: table.Name,
			SQL:   g.rewriter.Rewrite(create),
		})
	}

	for _, name := range diff.DroppedTables {
		plan.Drops = append(plan.Drops, TableStatement{
			Table: name,
			SQL:   DropTable(name),
		})
	}

	for _, tableDiff := range diff.AlteredTables {
		if unit := AlterTable(tableDiff); len(unit.Clauses) > 0 {
			plan.Alters = append(plan.Alters, unit)
		}
	}

	return plan, nil
}

// DropTable renders the DROP TABLE statement of a table.
func DropTable(name string) string {
	return "DROP TABLE " + sqlutil.QuoteIdentifier(name)
}

// AlterTable renders the clauses of one table diff. The deltas of a TableDiff
// are already ordered added, modified, removed; the clauses keep that order.
func AlterTable(tableDiff difftypes.TableDiff) AlterUnit {
	unit := AlterUnit{Table: tableDiff.TableName}
	for _, delta := range tableDiff.Deltas {
		unit.Clauses = append(unit.Clauses, clauseFor(delta))
	}
	return unit
}

func clauseFor(delta difftypes.ColumnDelta) Clause {
	switch delta.Kind {
	case difftypes.ColumnAdded:
		return Clause{Kind: delta.Kind, SQL: "ADD COLUMN " + delta.Column.Definition()}
	case difftypes.ColumnModified:
		return Clause{Kind: delta.Kind, SQL: "MODIFY COLUMN " + delta.Column.Definition(), Previous: delta.Previous}
	default:
		return Clause{Kind: delta.Kind, SQL: "DROP COLUMN " + sqlutil.QuoteIdentifier(delta.ColumnName)}
	}
}
