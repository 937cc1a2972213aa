package compare

import (
	dbtypes "github.com/stokaro/schemasync/dbschema/types"
	difftypes "github.com/stokaro/schemasync/migration/schemadiff/types"
)

// TablesAndColumns compares the tables of two snapshots and records the result in diff.
//
// # Comparison Process
//
//  1. **New tables**: tables in source but not in dest, in source order
//  2. **Dropped tables**: tables in dest but not in source, in dest order
//  3. **Common tables**: compared column by column via TableColumns, in source order
//
// Tables are matched by exact name. Lookups go through the snapshots' name
// indexes, so the cost is linear in the number of tables and columns.
func TablesAndColumns(source, dest *dbtypes.Snapshot, diff *difftypes.SchemaDiff) {
	for _, table := range source.Tables() {
		if !dest.Has(table.Name) {
			diff.NewTables = append(diff.NewTables, table)
		}
	}

	for _, table := range dest.Tables() {
		if !source.Has(table.Name) {
			diff.DroppedTables = append(diff.DroppedTables, table.Name)
		}
	}

	for _, sourceTable := range source.Tables() {
		destTable, exists := dest.Table(sourceTable.Name)
		if !exists {
			continue
		}
		tableDiff := TableColumns(sourceTable, destTable)
		if len(tableDiff.Deltas) > 0 {
			diff.AlteredTables = append(diff.AlteredTables, tableDiff)
		}
	}
}

// TableColumns compares the columns of a table that exists on both sides.
//
// Columns are matched by field name. The deltas are emitted in a fixed order:
//   - added columns (source only), in source column order
//   - modified columns (definitions differ), in source column order, carrying
//     the destination definition for reporting
//   - removed columns (dest only), in dest column order
//
// Columns whose definitions are identical produce no delta.
func TableColumns(source, dest *dbtypes.Table) difftypes.TableDiff {
	tableDiff := difftypes.TableDiff{TableName: source.Name}

	var added, modified, removed []difftypes.ColumnDelta

	for _, col := range source.Columns() {
		destCol, exists := dest.Column(col.Name)
		switch {
		case !exists:
			added = append(added, difftypes.ColumnDelta{
				Kind:       difftypes.ColumnAdded,
				ColumnName: col.Name,
				Column:     col,
			})
		case !col.Equal(destCol):
			modified = append(modified, difftypes.ColumnDelta{
				Kind:       difftypes.ColumnModified,
				ColumnName: col.Name,
				Column:     col,
				Previous:   destCol.Definition(),
			})
		}
	}

	for _, col := range dest.Columns() {
		if _, exists := source.Column(col.Name); !exists {
			removed = append(removed, difftypes.ColumnDelta{
				Kind:       difftypes.ColumnRemoved,
				ColumnName: col.Name,
			})
		}
	}

	tableDiff.Deltas = append(tableDiff.Deltas, added...)
	tableDiff.Deltas = append(tableDiff.Deltas, modified...)
	tableDiff.Deltas = append(tableDiff.Deltas, removed...)
	return tableDiff
}
