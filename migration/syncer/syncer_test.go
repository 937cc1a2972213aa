package syncer_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-extras/go-kit/must"

	"github.com/stokaro/schemasync/config"
	"github.com/stokaro/schemasync/dbschema/mysql"
	"github.com/stokaro/schemasync/dbschema/testutil"
	"github.com/stokaro/schemasync/dbschema/types"
	"github.com/stokaro/schemasync/migration/syncer"
)

const ordersCreate = "CREATE TABLE `orders` (\n  `id` int NOT NULL\n) ENGINE=InnoDB DEFAULT CHARSET=utf8 COLLATE=utf8_general_ci"

func sourceDB() *testutil.FakeDatabase {
	return testutil.NewFakeDatabase().
		AddTable("users", "",
			testutil.NotNull("id", "int"),
			testutil.NotNull("email", "varchar(255)"),
			testutil.NotNull("name", "varchar(100)"),
		).
		AddTable("orders", ordersCreate, testutil.NotNull("id", "int"))
}

func destDB() *testutil.FakeDatabase {
	return testutil.NewFakeDatabase().
		AddTable("users", "",
			testutil.NotNull("id", "int"),
			testutil.NotNull("name", "varchar(50)"),
			testutil.NotNull("legacy", "int"),
		).
		AddTable("archive", "", testutil.NotNull("id", "int"))
}

func newSyncer(source, dest types.Database, opts *config.SyncOptions) (*syncer.Syncer, *bytes.Buffer) {
	s := must.Must(syncer.New(source, dest, opts))
	var out bytes.Buffer
	discard := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return s.WithOutput(&out).WithLogger(discard), &out
}

func TestNew_InvalidSubstitutionRule(t *testing.T) {
	c := qt.New(t)

	opts := config.WithCollateSubstitutions(config.CollateSubstitution{From: "utf8_general_ci"})
	_, err := syncer.New(sourceDB(), destDB(), opts)
	c.Assert(err, qt.ErrorIs, config.ErrInvalidSubstitutionRule)
}

func TestDryRun_NoChanges(t *testing.T) {
	c := qt.New(t)

	dest := sourceDB()
	s, out := newSyncer(sourceDB(), dest, nil)

	result, err := s.DryRun(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Count, qt.Equals, 0)
	c.Assert(result.Plan.Empty(), qt.IsTrue)
	c.Assert(result.RunID, qt.Not(qt.Equals), "")
	c.Assert(dest.Executed, qt.HasLen, 0)

	c.Assert(out.String(), qt.Equals, "\n===== NEW TABLES\n"+
		syncer.NoNewTables+"\n"+
		"\n===== TABLES TO REMOVE\n"+
		syncer.NoDroppedTables+"\n"+
		"\n===== EXISTING TABLES\n"+
		syncer.NoAlteredTables+"\n\n")
}

func TestDryRun_DisplaysPlan(t *testing.T) {
	c := qt.New(t)

	dest := destDB()
	opts := config.WithCollateSubstitutions(
		config.CollateSubstitution{From: "utf8_general_ci", To: "utf8mb4_unicode_ci"},
	)
	s, out := newSyncer(sourceDB(), dest, opts)

	result, err := s.DryRun(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Count, qt.Equals, 3)
	c.Assert(dest.Executed, qt.HasLen, 0)

	c.Assert(out.String(), qt.Equals, "\n===== NEW TABLES\n"+
		"\nCREATE TABLE `orders` (\n  `id` int NOT NULL\n) ENGINE=InnoDB DEFAULT CHARSET=utf8 COLLATE=utf8mb4_unicode_ci;\n"+
		"\n===== TABLES TO REMOVE\n"+
		"\nDROP TABLE `archive`;\n"+
		"\n===== EXISTING TABLES\n"+
		"ALTER TABLE `users`\n"+
		"ADD COLUMN `email` varchar(255) NOT NULL,\n"+
		"MODIFY COLUMN `name` varchar(100) NOT NULL,\n"+
		"\twas: [`name` varchar(50) NOT NULL]\n"+
		"DROP COLUMN `legacy`\n"+
		"\n-------------\n"+
		"\n")
}

func TestDryRun_ReadFailure(t *testing.T) {
	c := qt.New(t)

	source := sourceDB()
	source.ListErr = errors.New("connection reset")
	s, _ := newSyncer(source, destDB(), nil)

	_, err := s.DryRun(context.Background())
	c.Assert(err, qt.ErrorIs, mysql.ErrReadFailure)
	c.Assert(err, qt.ErrorMatches, "failed to read source schema: .*connection reset")
}

func TestDryRun_LogsRunID(t *testing.T) {
	c := qt.New(t)

	s, err := syncer.New(sourceDB(), destDB(), nil)
	c.Assert(err, qt.IsNil)

	var logs bytes.Buffer
	s = s.WithOutput(&bytes.Buffer{}).WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	result, err := s.DryRun(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(logs.String(), qt.Contains, "run="+result.RunID)
	c.Assert(logs.String(), qt.Contains, "Dry run complete")
}

func TestApply_ExecutesInOrder(t *testing.T) {
	c := qt.New(t)

	source := sourceDB()
	dest := destDB()
	s, out := newSyncer(source, dest, nil)

	result, err := s.Apply(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Count, qt.Equals, 3)
	c.Assert(result.Failures, qt.HasLen, 0)

	c.Assert(dest.Executed, qt.DeepEquals, []string{
		ordersCreate,
		"DROP TABLE `archive`",
		"ALTER TABLE `users` ADD COLUMN `email` varchar(255) NOT NULL",
		"ALTER TABLE `users` MODIFY COLUMN `name` varchar(100) NOT NULL",
		"ALTER TABLE `users` DROP COLUMN `legacy`",
	})
	c.Assert(dest.Commits, qt.Equals, 1)
	c.Assert(dest.Rollbacks, qt.Equals, 0)
	c.Assert(source.Executed, qt.HasLen, 0)
	c.Assert(out.String(), qt.Equals, "creating orders\ndropping archive\nadjusting users\n")
}

func TestApply_AlterFailureIsIsolated(t *testing.T) {
	c := qt.New(t)

	dest := destDB()
	boom := errors.New("Data truncated for column 'name'")
	dest.FailExec("MODIFY COLUMN", boom)
	s, _ := newSyncer(sourceDB(), dest, nil)

	result, err := s.Apply(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Failures, qt.HasLen, 1)
	c.Assert(result.Failures[0].Statement, qt.Equals, "ALTER TABLE `users` MODIFY COLUMN `name` varchar(100) NOT NULL")
	c.Assert(result.Failures[0], qt.ErrorIs, boom)

	// The clause after the failing one still runs.
	c.Assert(dest.Executed[len(dest.Executed)-1], qt.Equals, "ALTER TABLE `users` DROP COLUMN `legacy`")
	c.Assert(dest.Commits, qt.Equals, 1)
}

func TestApply_CreateFailureRollsBack(t *testing.T) {
	c := qt.New(t)

	dest := destDB()
	boom := errors.New("table exists")
	dest.FailExec("CREATE TABLE", boom)
	s, _ := newSyncer(sourceDB(), dest, nil)

	_, err := s.Apply(context.Background())
	c.Assert(err, qt.ErrorIs, boom)
	c.Assert(err, qt.ErrorMatches, "failed to create table orders: table exists")
	c.Assert(dest.Executed, qt.DeepEquals, []string{ordersCreate})
	c.Assert(dest.Rollbacks, qt.Equals, 1)
	c.Assert(dest.Commits, qt.Equals, 0)
}

func TestApply_WithoutTransactor(t *testing.T) {
	c := qt.New(t)

	dest := destDB()
	// Embedding only types.Database hides RunInTransaction.
	plain := struct{ types.Database }{dest}
	s, _ := newSyncer(sourceDB(), plain, nil)

	result, err := s.Apply(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Count, qt.Equals, 3)
	c.Assert(dest.Executed, qt.HasLen, 5)
	c.Assert(dest.Commits, qt.Equals, 0)
}

func TestApply_NoChanges(t *testing.T) {
	c := qt.New(t)

	dest := sourceDB()
	s, _ := newSyncer(sourceDB(), dest, nil)

	result, err := s.Apply(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Count, qt.Equals, 0)
	c.Assert(dest.Executed, qt.HasLen, 0)
}
