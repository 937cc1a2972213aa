package types_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/schemasync/dbschema/types"
)

func TestTable_PreservesColumnOrder(t *testing.T) {
	c := qt.New(t)

	table := types.NewTable("users")
	table.AddColumn(types.NewColumn("id", "int", false, nil, "auto_increment", "`id` int NOT NULL auto_increment"))
	table.AddColumn(types.NewColumn("name", "varchar(50)", false, nil, "", "`name` varchar(50) NOT NULL"))
	table.AddColumn(types.NewColumn("age", "int", true, nil, "", "`age` int DEFAULT NULL"))

	var names []string
	for _, col := range table.Columns() {
		names = append(names, col.Name)
	}
	c.Assert(names, qt.DeepEquals, []string{"id", "name", "age"})
	c.Assert(table.Len(), qt.Equals, 3)

	col, ok := table.Column("name")
	c.Assert(ok, qt.IsTrue)
	c.Assert(col.Definition(), qt.Equals, "`name` varchar(50) NOT NULL")

	_, ok = table.Column("missing")
	c.Assert(ok, qt.IsFalse)
}

func TestTable_AddColumnReplacesInPlace(t *testing.T) {
	c := qt.New(t)

	table := types.NewTable("t")
	table.AddColumn(types.NewColumn("a", "int", false, nil, "", "`a` int NOT NULL"))
	table.AddColumn(types.NewColumn("b", "int", false, nil, "", "`b` int NOT NULL"))
	table.AddColumn(types.NewColumn("a", "bigint", false, nil, "", "`a` bigint NOT NULL"))

	c.Assert(table.Len(), qt.Equals, 2)
	c.Assert(table.Columns()[0].Definition(), qt.Equals, "`a` bigint NOT NULL")
}

func TestColumn_Equal(t *testing.T) {
	c := qt.New(t)

	a := types.NewColumn("a", "int", false, nil, "", "`a` int NOT NULL")
	b := types.NewColumn("a", "int", false, nil, "", "`a` int NOT NULL")
	d := types.NewColumn("a", "int", true, nil, "", "`a` int DEFAULT NULL")

	c.Assert(a.Equal(b), qt.IsTrue)
	c.Assert(a.Equal(d), qt.IsFalse)
}

func TestSnapshot_Order(t *testing.T) {
	c := qt.New(t)

	snap := types.NewSnapshot()
	snap.AddTable(types.NewTable("users"))
	snap.AddTable(types.NewTable("orders"))
	snap.AddTable(types.NewTable("archive"))

	c.Assert(snap.TableNames(), qt.DeepEquals, []string{"users", "orders", "archive"})
	c.Assert(snap.Has("orders"), qt.IsTrue)
	c.Assert(snap.Has("products"), qt.IsFalse)

	table, ok := snap.Table("archive")
	c.Assert(ok, qt.IsTrue)
	c.Assert(table.Name, qt.Equals, "archive")
}
