package types

import (
	dbtypes "github.com/stokaro/schemasync/dbschema/types"
)

// SchemaDiff represents the differences between a source and a destination schema.
//
// The diff is organized by table:
//   - NewTables: tables present only in the source, to be created on the destination
//   - DroppedTables: tables present only in the destination, to be dropped
//   - AlteredTables: tables present on both sides whose columns differ
//
// Every list follows snapshot order so that the same pair of snapshots always
// yields the same diff.
//
// # Example Usage
//
//	diff := schemadiff.Compare(source, dest)
//	if diff.HasChanges() {
//		fmt.Printf("Found %d new tables\n", len(diff.NewTables))
//	}
type SchemaDiff struct {
	// NewTables contains the source definitions of tables missing from the destination
	NewTables []*dbtypes.Table `json:"new_tables"`

	// DroppedTables contains names of tables that exist only in the destination
	// (potentially dangerous - data loss)
	DroppedTables []string `json:"dropped_tables"`

	// AlteredTables contains per-table column deltas for tables on both sides.
	// Tables without deltas are never listed.
	AlteredTables []TableDiff `json:"altered_tables"`
}

// HasChanges returns true if the diff contains any schema changes.
func (d *SchemaDiff) HasChanges() bool {
	return len(d.NewTables) > 0 ||
		len(d.DroppedTables) > 0 ||
		len(d.AlteredTables) > 0
}

// NewTableNames returns the names of the new tables in order.
func (d *SchemaDiff) NewTableNames() []string {
	names := make([]string, len(d.NewTables))
	for i, t := range d.NewTables {
		names[i] = t.Name
	}
	return names
}

// DeltaKind identifies the kind of a column change.
type DeltaKind int

const (
	// ColumnAdded means the column exists only in the source.
	ColumnAdded DeltaKind = iota
	// ColumnModified means the column exists on both sides with different definitions.
	ColumnModified
	// ColumnRemoved means the column exists only in the destination.
	ColumnRemoved
)

func (k DeltaKind) String() string {
	switch k {
	case ColumnAdded:
		return "added"
	case ColumnModified:
		return "modified"
	case ColumnRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ColumnDelta is one column change within a table.
type ColumnDelta struct {
	Kind DeltaKind `json:"kind"`

	// ColumnName is the field name the delta applies to
	ColumnName string `json:"column_name"`

	// Column is the source column for added and modified deltas
	Column dbtypes.Column `json:"column"`

	// Previous is the destination definition of a modified column. It is only
	// used for reporting, never to build SQL.
	Previous string `json:"previous,omitempty"`
}

// TableDiff represents the column changes of one table, ordered
// added, then modified, then removed.
type TableDiff struct {
	// TableName is the name of the table being modified
	TableName string `json:"table_name"`

	// Deltas lists the column changes in emission order
	Deltas []ColumnDelta `json:"deltas"`
}

// Added returns the added-column deltas.
func (d TableDiff) Added() []ColumnDelta {
	return d.filter(ColumnAdded)
}

// Modified returns the modified-column deltas.
func (d TableDiff) Modified() []ColumnDelta {
	return d.filter(ColumnModified)
}

// Removed returns the removed-column deltas.
func (d TableDiff) Removed() []ColumnDelta {
	return d.filter(ColumnRemoved)
}

func (d TableDiff) filter(kind DeltaKind) []ColumnDelta {
	var out []ColumnDelta
	for _, delta := range d.Deltas {
		if delta.Kind == kind {
			out = append(out, delta)
		}
	}
	return out
}
