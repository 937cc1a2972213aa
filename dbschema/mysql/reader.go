package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-sql-driver/mysql"

	"github.com/stokaro/schemasync/config"
	"github.com/stokaro/schemasync/dbschema/normalize"
	"github.com/stokaro/schemasync/dbschema/types"
)

// ErrReadFailure wraps any error that prevents a snapshot from being taken.
var ErrReadFailure = errors.New("failed to read schema")

// Reader reads a table snapshot from a MySQL catalog
type Reader struct {
	catalog types.Catalog
	opts    *config.SyncOptions
	logger  *slog.Logger
}

// NewReader creates a new MySQL schema reader
func NewReader(catalog types.Catalog, opts *config.SyncOptions) *Reader {
	if opts == nil {
		opts = config.DefaultSyncOptions()
	}
	return &Reader{
		catalog: catalog,
		opts:    opts,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger for the reader
func (r *Reader) WithLogger(l *slog.Logger) *Reader {
	tmp := *r
	tmp.logger = l
	return &tmp
}

// ReadSchema lists the tables of the database and describes each of them in turn.
// Tables that have no columns, or whose description the server rejects, are left
// out of the snapshot. Any other failure aborts the read.
func (r *Reader) ReadSchema(ctx context.Context) (*types.Snapshot, error) {
	names, err := r.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list tables: %w", ErrReadFailure, err)
	}

	snapshot := types.NewSnapshot()
	for _, name := range names {
		if name == "" {
			continue
		}

		table, err := r.readTable(ctx, name)
		if err != nil {
			return nil, err
		}
		if table == nil || table.Len() == 0 {
			continue
		}
		snapshot.AddTable(table)
	}

	return snapshot, nil
}

func (r *Reader) readTable(ctx context.Context, name string) (*types.Table, error) {
	rows, err := r.catalog.DescribeColumns(ctx, name)
	if err != nil {
		var serverErr *mysql.MySQLError
		if errors.As(err, &serverErr) {
			r.logger.Warn("Skipping table that could not be described", "table", name, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to describe table %s: %w", ErrReadFailure, name, err)
	}

	table := types.NewTable(name)
	for _, raw := range rows {
		table.AddColumn(normalize.Column(raw, r.opts))
	}
	return table, nil
}
