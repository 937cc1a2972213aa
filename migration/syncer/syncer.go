// Package syncer runs the read, diff and generate pipeline between a source and
// a destination database, and either displays the resulting plan or applies it.
package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/stokaro/schemasync/config"
	"github.com/stokaro/schemasync/core/sqlutil"
	"github.com/stokaro/schemasync/dbschema/mysql"
	"github.com/stokaro/schemasync/dbschema/types"
	"github.com/stokaro/schemasync/migration/collation"
	"github.com/stokaro/schemasync/migration/planner"
	"github.com/stokaro/schemasync/migration/schemadiff"
)

// StatementFailure is an ALTER TABLE statement that failed during Apply.
type StatementFailure struct {
	Statement string
	Err       error
}

func (f StatementFailure) Error() string {
	return fmt.Sprintf("statement failed: [%s]: %v", f.Statement, f.Err)
}

func (f StatementFailure) Unwrap() error {
	return f.Err
}

// Result describes one run of the pipeline.
type Result struct {
	RunID string
	Plan  *planner.Plan
	// Count is the number of statement groups in the plan. Zero means the
	// destination already matches the source.
	Count int
	// Failures holds the ALTER TABLE statements that failed during Apply.
	Failures []StatementFailure
}

// Syncer brings the structure of a destination database in line with a source.
type Syncer struct {
	source   types.Database
	dest     types.Database
	opts     *config.SyncOptions
	rewriter *collation.Rewriter
	logger   *slog.Logger
	out      io.Writer
}

// New creates a syncer. The options are validated before anything is read, so
// an invalid collate substitution rule is reported up front.
func New(source, dest types.Database, opts *config.SyncOptions) (*Syncer, error) {
	if opts == nil {
		opts = config.DefaultSyncOptions()
	}
	rewriter, err := collation.New(opts)
	if err != nil {
		return nil, err
	}
	return &Syncer{
		source:   source,
		dest:     dest,
		opts:     opts,
		rewriter: rewriter,
		logger:   slog.Default(),
		out:      os.Stdout,
	}, nil
}

// WithLogger sets the logger for the syncer
func (s *Syncer) WithLogger(l *slog.Logger) *Syncer {
	tmp := *s
	tmp.logger = l
	return &tmp
}

// WithOutput sets the writer that receives the human-readable report
func (s *Syncer) WithOutput(w io.Writer) *Syncer {
	tmp := *s
	tmp.out = w
	return &tmp
}

// Plan reads both databases and returns the statements that would bring the
// destination in line with the source.
func (s *Syncer) Plan(ctx context.Context) (*planner.Plan, error) {
	return s.plan(ctx, s.logger, s.dest)
}

func (s *Syncer) plan(ctx context.Context, logger *slog.Logger, dest types.Catalog) (*planner.Plan, error) {
	logger.Debug("Reading source schema")
	sourceSnapshot, err := mysql.NewReader(s.source, s.opts).WithLogger(logger).ReadSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read source schema: %w", err)
	}

	logger.Debug("Reading destination schema")
	destSnapshot, err := mysql.NewReader(dest, s.opts).WithLogger(logger).ReadSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read destination schema: %w", err)
	}

	diff := schemadiff.Compare(sourceSnapshot, destSnapshot)
	logger.Info("Compared schemas",
		"sourceTables", len(sourceSnapshot.Tables()),
		"destTables", len(destSnapshot.Tables()),
		"newTables", len(diff.NewTables),
		"droppedTables", len(diff.DroppedTables),
		"alteredTables", len(diff.AlteredTables))

	plan, err := planner.NewGenerator(s.source, s.rewriter).Generate(ctx, diff)
	if err != nil {
		return nil, fmt.Errorf("failed to generate statements: %w", err)
	}

	if s.opts.ValidateStatements {
		for _, w := range plan.Validate() {
			logger.Warn("Generated statement does not parse", "statement", w.Statement, "error", w.Err)
		}
	}

	return plan, nil
}

// DryRun builds the plan and writes it to the output without touching the
// destination.
func (s *Syncer) DryRun(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := s.logger.With("run", runID, "mode", "dry-run")

	plan, err := s.plan(ctx, logger, s.dest)
	if err != nil {
		return nil, err
	}

	s.display(plan)

	logger.Info("Dry run complete", "statementGroups", plan.Count())
	return &Result{RunID: runID, Plan: plan, Count: plan.Count()}, nil
}

// Apply rebuilds the plan from fresh snapshots and executes it against the
// destination: creates, then drops, then alters one clause at a time.
//
// When the destination implements types.Transactor, the whole run happens in
// one transaction. A failing CREATE or DROP statement aborts the run and rolls
// the transaction back. A failing ALTER TABLE clause is logged and recorded in
// Result.Failures, and the run continues with the next clause.
func (s *Syncer) Apply(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := s.logger.With("run", runID, "mode", "apply")

	result := &Result{RunID: runID}
	run := func(ctx context.Context, dest types.Database) error {
		plan, err := s.plan(ctx, logger, dest)
		if err != nil {
			return err
		}
		result.Plan = plan
		result.Count = plan.Count()

		return s.execute(ctx, logger, dest, plan, result)
	}

	var err error
	if tx, ok := s.dest.(types.Transactor); ok {
		err = tx.RunInTransaction(ctx, run)
	} else {
		err = run(ctx, s.dest)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Apply complete", "statementGroups", result.Count, "failures", len(result.Failures))
	return result, nil
}

func (s *Syncer) execute(ctx context.Context, logger *slog.Logger, dest types.Executor, plan *planner.Plan, result *Result) error {
	for _, create := range plan.Creates {
		fmt.Fprintf(s.out, "creating %s\n", create.Table)
		if err := dest.Execute(ctx, create.SQL); err != nil {
			return fmt.Errorf("failed to create table %s: %w", create.Table, err)
		}
	}

	for _, drop := range plan.Drops {
		fmt.Fprintf(s.out, "dropping %s\n", drop.Table)
		if err := dest.Execute(ctx, drop.SQL); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", drop.Table, err)
		}
	}

	for _, unit := range plan.Alters {
		fmt.Fprintf(s.out, "adjusting %s\n", unit.Table)
		for _, stmt := range unit.Statements() {
			if err := dest.Execute(ctx, stmt); err != nil {
				logger.Error("Statement failed", "statement", stmt, "error", err)
				fmt.Fprintf(s.out, "Statement failed: [%s] %v\n", stmt, err)
				result.Failures = append(result.Failures, StatementFailure{Statement: stmt, Err: err})
			}
		}
	}

	return nil
}

func (s *Syncer) section(title string) {
	fmt.Fprintf(s.out, "\n===== %s\n", title)
}

func (s *Syncer) display(plan *planner.Plan) {
	s.section("NEW TABLES")
	for _, create := range plan.Creates {
		fmt.Fprintf(s.out, "\n%s\n", sqlutil.Terminate(create.SQL))
	}
	if len(plan.Creates) == 0 {
		fmt.Fprintln(s.out, NoNewTables)
	}

	s.section("TABLES TO REMOVE")
	for _, drop := range plan.Drops {
		fmt.Fprintf(s.out, "\n%s\n", sqlutil.Terminate(drop.SQL))
	}
	if len(plan.Drops) == 0 {
		fmt.Fprintln(s.out, NoDroppedTables)
	}

	s.section("EXISTING TABLES")
	for _, unit := range plan.Alters {
		fmt.Fprintf(s.out, "%s\n\n-------------\n", unit.Display())
	}
	if len(plan.Alters) == 0 {
		fmt.Fprintln(s.out, NoAlteredTables)
	}
	fmt.Fprintln(s.out)
}

// Messages printed for empty plan sections.
const (
	NoNewTables     = "There are no new tables."
	NoDroppedTables = "There are no tables to drop."
	NoAlteredTables = "There are no changes between existing tables."
)
