// Package dbschema connects to MySQL databases and exposes them through the
// catalog and executor interfaces used by the schema reader and the syncer.
package dbschema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/stokaro/schemasync/config"
	"github.com/stokaro/schemasync/core/sqlutil"
	"github.com/stokaro/schemasync/dbschema/types"
)

// ErrConnectionFailure is returned when a database cannot be reached or rejects the credentials.
var ErrConnectionFailure = errors.New("unable to connect to the MySQL database")

// Interface assertions
var (
	_ types.Database   = (*DatabaseConnection)(nil)
	_ types.Transactor = (*DatabaseConnection)(nil)
)

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DatabaseConnection is a connection to one MySQL database.
type DatabaseConnection struct {
	db     *sql.DB
	runner runner
	cfg    config.ConnectionConfig
	inTx   bool
}

// Connect opens a connection described by cfg and verifies it with a ping.
// The caller owns the returned connection and must Close it.
func Connect(ctx context.Context, cfg config.ConnectionConfig) (*DatabaseConnection, error) {
	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrConnectionFailure, cfg, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w (%s): %w", ErrConnectionFailure, cfg, err)
	}

	return &DatabaseConnection{
		db:     db,
		runner: db,
		cfg:    cfg,
	}, nil
}

// buildDSN formats the go-sql-driver DSN for a connection config.
func buildDSN(cfg config.ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = config.DefaultPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	return mc.FormatDSN()
}

// Close releases the underlying connection pool. Closing a transaction-bound
// connection is a no-op; the transaction owner releases it.
func (c *DatabaseConnection) Close() error {
	if c == nil || c.db == nil || c.inTx {
		return nil
	}
	return c.db.Close()
}

// Config returns the configuration the connection was opened with.
func (c *DatabaseConnection) Config() config.ConnectionConfig {
	return c.cfg
}

// ServerVersion returns the server's version string.
func (c *DatabaseConnection) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.runner.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return version, nil
}

// ListTables returns the base tables of the current database. Views are excluded
// since SHOW CREATE TABLE does not produce a CREATE TABLE statement for them.
func (c *DatabaseConnection) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.runner.QueryContext(ctx, "SHOW FULL TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if tableType != "BASE TABLE" {
			continue
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}
	return tables, nil
}

// DescribeColumns returns the DESCRIBE rows of a table in column order.
func (c *DatabaseConnection) DescribeColumns(ctx context.Context, table string) ([]types.RawColumn, error) {
	rows, err := c.runner.QueryContext(ctx, "DESCRIBE "+sqlutil.QuoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []types.RawColumn
	for rows.Next() {
		var (
			col          types.RawColumn
			null, key    string
			defaultValue sql.NullString
		)
		if err := rows.Scan(&col.Field, &col.Type, &null, &key, &defaultValue, &col.Extra); err != nil {
			return nil, fmt.Errorf("failed to scan column of table %s: %w", table, err)
		}
		col.Nullable = null == "YES"
		if defaultValue.Valid {
			value := defaultValue.String
			col.Default = &value
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows of table %s: %w", table, err)
	}
	return columns, nil
}

// CaptureCreateStatement returns the SHOW CREATE TABLE text of a table.
func (c *DatabaseConnection) CaptureCreateStatement(ctx context.Context, table string) (string, error) {
	var name, create string
	row := c.runner.QueryRowContext(ctx, "SHOW CREATE TABLE "+sqlutil.QuoteIdentifier(table))
	if err := row.Scan(&name, &create); err != nil {
		return "", fmt.Errorf("failed to capture create statement of table %s: %w", table, err)
	}
	return create, nil
}

// Execute runs a single statement.
func (c *DatabaseConnection) Execute(ctx context.Context, stmt string) error {
	if _, err := c.runner.ExecContext(ctx, stmt); err != nil {
		return err
	}
	return nil
}

// RunInTransaction runs fn with a connection bound to a new transaction. The
// transaction is committed when fn returns nil and rolled back otherwise.
// MySQL commits DDL implicitly, so the rollback only covers statements the
// server has not yet committed.
func (c *DatabaseConnection) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx types.Database) error) error {
	if c.inTx {
		return fn(ctx, c)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txConn := &DatabaseConnection{
		db:     c.db,
		runner: tx,
		cfg:    c.cfg,
		inTx:   true,
	}

	if err := fn(ctx, txConn); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
