package syncdb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/stokaro/schemasync/config"
	"github.com/stokaro/schemasync/dbschema"
	"github.com/stokaro/schemasync/migration/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Compare two MySQL databases and bring the destination in line with the source",
	Long: `Compare the table structure of two MySQL databases and display the statements
needed to make the destination match the source.

The source is authoritative: tables it has that the destination lacks are created,
tables only the destination has are dropped, and columns of shared tables are
added, modified or dropped. After the differences are displayed you can deploy
them to the destination, save them to a SQL file or cancel.

Examples:
  schemasync sync --config database.json                   # Display and ask what to do
  schemasync sync --config database.json --action save     # Write database_diff-*.sql
  schemasync sync --config database.json --action deploy   # Apply without asking`,
	RunE: syncCommand,
}

const (
	configFlag    = "config"
	actionFlag    = "action"
	outputDirFlag = "output-dir"
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"
)

var syncFlags = map[string]cobraflags.Flag{
	configFlag: &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "database.json",
		Usage: "JSON file describing the source and destination databases",
	},
	actionFlag: &cobraflags.StringFlag{
		Name:  actionFlag,
		Value: "",
		Usage: "What to do with the differences (deploy, save, cancel). If empty, asks interactively",
	},
	outputDirFlag: &cobraflags.StringFlag{
		Name:  outputDirFlag,
		Value: ".",
		Usage: "Directory where the SQL file is saved",
	},
	logLevelFlag: &cobraflags.StringFlag{
		Name:  logLevelFlag,
		Value: "warn",
		Usage: "Log level (debug, info, warn, error)",
	},
	logFormatFlag: &cobraflags.StringFlag{
		Name:  logFormatFlag,
		Value: "text",
		Usage: "Log format (text, json)",
	},
}

// NewSyncCommand returns the sync command.
func NewSyncCommand() *cobra.Command {
	cobraflags.RegisterMap(syncCmd, syncFlags)
	return syncCmd
}

// Action is what happens to the differences after they are displayed.
type Action string

const (
	ActionDeploy Action = "deploy"
	ActionSave   Action = "save"
	ActionCancel Action = "cancel"
)

// ParseAction accepts the full action names as well as the single letter
// answers of the interactive prompt. Deploy must be answered with a capital D.
func ParseAction(s string) (Action, error) {
	switch strings.TrimSpace(s) {
	case "D", string(ActionDeploy):
		return ActionDeploy, nil
	case "s", string(ActionSave):
		return ActionSave, nil
	case "c", string(ActionCancel):
		return ActionCancel, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// AskAction repeats the deploy/save/cancel question until a valid answer is read.
func AskAction(in *bufio.Reader, out io.Writer) (Action, error) {
	for {
		fmt.Fprint(out, "Do you want to deploy the changes to the destination, dump the SQL modification commands to a file or cancel? [D]eploy to destination, [s]ave to file, [c]ancel: ")
		line, err := in.ReadString('\n')
		if action, perr := ParseAction(line); perr == nil {
			return action, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
	}
}

func syncCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := NewLogger(os.Stderr, syncFlags[logLevelFlag].GetString(), syncFlags[logFormatFlag].GetString())
	if err != nil {
		return err
	}

	var action Action
	if a := syncFlags[actionFlag].GetString(); a != "" {
		if action, err = ParseAction(a); err != nil {
			return err
		}
	}

	cfg, err := config.Load(syncFlags[configFlag].GetString())
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	stdin := bufio.NewReader(os.Stdin)
	if err := promptCredentials(logger, stdin, os.Stdout, "source", &cfg.Source); err != nil {
		return err
	}
	if err := promptCredentials(logger, stdin, os.Stdout, "dest", &cfg.Dest); err != nil {
		return err
	}

	fmt.Printf("\n--Source: %s\n", cfg.Source)
	source, err := connect(ctx, logger, "source", cfg.Source)
	if err != nil {
		return err
	}
	defer source.Close()

	fmt.Printf("\n--Dest: %s\n\n", cfg.Dest)
	dest, err := connect(ctx, logger, "destination", cfg.Dest)
	if err != nil {
		return err
	}
	defer dest.Close()

	s, err := syncer.New(source, dest, &cfg.SyncOptions)
	if err != nil {
		return err
	}
	s = s.WithLogger(logger).WithOutput(os.Stdout)

	fmt.Println("Displaying differences..")
	result, err := s.DryRun(ctx)
	if err != nil {
		return err
	}
	if result.Count == 0 {
		return nil
	}

	if action == "" {
		if action, err = AskAction(stdin, os.Stdout); err != nil {
			return err
		}
	}

	switch action {
	case ActionDeploy:
		applied, err := s.Apply(ctx)
		if err != nil {
			return fmt.Errorf("error deploying changes: %w", err)
		}
		if n := len(applied.Failures); n > 0 {
			fmt.Printf("\n%d statement(s) failed, see above.\n", n)
		} else {
			fmt.Println("\nChanges deployed.")
		}
	case ActionSave:
		path, err := syncer.SaveReport(syncFlags[outputDirFlag].GetString(), time.Now(), result.Plan)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
	case ActionCancel:
		fmt.Println("Cancelled.")
	}

	return nil
}

func connect(ctx context.Context, logger *slog.Logger, side string, cfg config.ConnectionConfig) (*dbschema.DatabaseConnection, error) {
	conn, err := dbschema.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to the %s MySQL database: %w", side, err)
	}

	version, err := conn.ServerVersion(ctx)
	if err != nil {
		logger.Warn("Could not determine server version", "side", side, "error", err)
		version = "unknown"
	}
	logger.Info("Connected", "side", side, "connection", conn.Config().String(), "version", version)
	return conn, nil
}

// KeyringService is the OS keyring service under which passwords are stored,
// keyed by user@host/database.
const KeyringService = "schemasync"

// LookupPassword fills in a missing password from the OS keyring. It reports
// whether a password was found.
func LookupPassword(conn *config.ConnectionConfig) (bool, error) {
	if conn.Password != "" {
		return true, nil
	}
	pw, err := keyring.Get(KeyringService, conn.String())
	if errors.Is(err, keyring.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read keyring: %w", err)
	}
	conn.Password = pw
	return true, nil
}

// promptCredentials asks for a missing user name. A missing password is looked
// up in the OS keyring and, failing that, asked for when stdin is a terminal.
func promptCredentials(logger *slog.Logger, in *bufio.Reader, out io.Writer, side string, conn *config.ConnectionConfig) error {
	if conn.User == "" {
		fmt.Fprintf(out, "%s user: ", side)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read %s user: %w", side, err)
		}
		conn.User = strings.TrimSpace(line)
	}

	found, err := LookupPassword(conn)
	if err != nil {
		logger.Debug("Keyring lookup failed", "connection", conn.String(), "error", err)
	}
	if found {
		return nil
	}

	fd := int(os.Stdin.Fd())
	if conn.Password == "" && term.IsTerminal(fd) {
		fmt.Fprintf(out, "%s password for %s: ", side, conn)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("failed to read %s password: %w", side, err)
		}
		conn.Password = string(pw)
	}
	return nil
}

// NewLogger builds the slog logger selected by the log flags.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (use text or json)", format)
	}
}
