package testutil_test

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/schemasync/dbschema/testutil"
	"github.com/stokaro/schemasync/dbschema/types"
)

func TestFakeDatabase_ExecuteFirstFailureWins(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	alterErr := errors.New("alter failed")
	modifyErr := errors.New("modify failed")
	db := testutil.NewFakeDatabase().
		FailExec("ALTER TABLE", alterErr).
		FailExec("MODIFY COLUMN", modifyErr)

	// Both matches occur in the statement; run it repeatedly so that an
	// unordered lookup would show up.
	for range 50 {
		err := db.Execute(ctx, "ALTER TABLE `users` MODIFY COLUMN `name` varchar(100) NOT NULL")
		c.Assert(err, qt.Equals, alterErr)
	}

	c.Assert(db.Execute(ctx, "MODIFY COLUMN only"), qt.Equals, modifyErr)
	c.Assert(db.Execute(ctx, "DROP TABLE `archive`"), qt.IsNil)
	c.Assert(db.Executed, qt.HasLen, 52)
}

func TestFakeDatabase_RunInTransaction(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	db := testutil.NewFakeDatabase()
	boom := errors.New("boom")

	err := db.RunInTransaction(ctx, func(context.Context, types.Database) error { return nil })
	c.Assert(err, qt.IsNil)
	err = db.RunInTransaction(ctx, func(context.Context, types.Database) error { return boom })
	c.Assert(err, qt.Equals, boom)

	c.Assert(db.Commits, qt.Equals, 1)
	c.Assert(db.Rollbacks, qt.Equals, 1)
}
