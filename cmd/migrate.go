package cmd

import (
	"fmt"
	"strconv"

	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the store schema",
	Long: `Migrate applies or reverts the versioned schema migrations of the store.
The harvest, reprocess and serve commands migrate up automatically.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.MigrateUp(cfg.Database); err != nil {
			return err
		}
		return printMigrationVersion(cmd)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Revert migrations (one step by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}

		log.Warn("Reverting migrations", logger.Int("steps", steps))
		if err := store.MigrateDown(cfg.Database, steps); err != nil {
			return err
		}
		return printMigrationVersion(cmd)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printMigrationVersion(cmd)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func printMigrationVersion(cmd *cobra.Command) error {
	version, dirty, err := store.MigrationVersion(cfg.Database)
	if err != nil {
		return err
	}

	state := ""
	if dirty {
		state = " (dirty)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, state)
	return nil
}
