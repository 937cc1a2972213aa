package syncer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stokaro/schemasync/core/sqlutil"
	"github.com/stokaro/schemasync/migration/planner"
)

// ReportFileName returns the name of the report file for a run started at now,
// e.g. database_diff-2024-03-07-09-15.sql.
func ReportFileName(now time.Time) string {
	return "database_diff-" + now.Format("2006-01-02-03-04") + ".sql"
}

// WriteReport writes the plan as a SQL script: the CREATE TABLE group, the DROP
// TABLE group and the ALTER TABLE group, separated by blank lines. Empty groups
// are left out. Every statement ends with a semicolon.
func WriteReport(w io.Writer, plan *planner.Plan) error {
	var groups []string

	if stmts := plan.CreateStatements(); len(stmts) > 0 {
		groups = append(groups, joinTerminated(stmts))
	}
	if stmts := plan.DropStatements(); len(stmts) > 0 {
		groups = append(groups, joinTerminated(stmts))
	}
	if len(plan.Alters) > 0 {
		alters := make([]string, len(plan.Alters))
		for i, unit := range plan.Alters {
			alters[i] = unit.Combined()
		}
		groups = append(groups, joinTerminated(alters))
	}

	if len(groups) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, strings.Join(groups, "\n\n")+"\n"); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// SaveReport writes the plan to a new report file in dir and returns its path.
func SaveReport(dir string, now time.Time, plan *planner.Plan) (string, error) {
	path := filepath.Join(dir, ReportFileName(now))

	var buf bytes.Buffer
	if err := WriteReport(&buf, plan); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil { //nolint:gosec // 0644 is fine
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

func joinTerminated(stmts []string) string {
	out := make([]string, len(stmts))
	for i, stmt := range stmts {
		out[i] = sqlutil.Terminate(stmt)
	}
	return strings.Join(out, "\n")
}
