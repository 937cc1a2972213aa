// Package schemadiff computes the table and column differences between two schema snapshots.
package schemadiff

import (
	dbtypes "github.com/stokaro/schemasync/dbschema/types"
	"github.com/stokaro/schemasync/migration/schemadiff/internal/compare"
	difftypes "github.com/stokaro/schemasync/migration/schemadiff/types"
)

// Compare performs schema comparison between a source and a destination snapshot.
//
// The source is authoritative: tables and columns it has that the destination
// lacks are reported as new or added, the reverse as dropped or removed, and
// columns present on both sides with different canonical definitions as modified.
//
// Parameters:
//   - source: snapshot of the database whose structure is copied
//   - dest: snapshot of the database being brought in line
//
// Returns a SchemaDiff containing all identified differences. The result only
// depends on the two snapshots, so comparing the same snapshots twice yields
// identical diffs.
//
// Example usage:
//
//	source, _ := mysql.NewReader(sourceConn, opts).ReadSchema(ctx)
//	dest, _ := mysql.NewReader(destConn, opts).ReadSchema(ctx)
//	diff := schemadiff.Compare(source, dest)
func Compare(source, dest *dbtypes.Snapshot) *difftypes.SchemaDiff {
	diff := &difftypes.SchemaDiff{}

	// Compare tables and their column structures
	compare.TablesAndColumns(source, dest, diff)

	return diff
}
