package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stokaro/schemasync/cmd/syncdb"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schemasync",
		Short: "Synchronise the table structure of two MySQL databases",
		Long: `schemasync compares the tables and columns of a source and a destination MySQL
database and generates the CREATE, DROP and ALTER TABLE statements that bring the
destination in line with the source.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(syncdb.NewSyncCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
