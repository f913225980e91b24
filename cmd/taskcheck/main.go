// Command taskcheck tracks checklists: categories hold template items, tasks
// copy them and record what is done.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "taskcheck",
	Short: "Checklist tracker for recurring routines",
	Long: `taskcheck keeps categories of checklist templates and the tasks created
from them. Every task gets its own copy of its category's checklist plus any
items added to it alone; its status (todo, doing, done) follows from how many
of those are checked.

Data lives in a local SQLite database. Snapshots can be exported to JSON and
merged back in with import.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", model.DefaultConfigPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database (overrides database.path)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data commands:"},
		&cobra.Group{ID: "transfer", Title: "Import and export:"},
		&cobra.Group{ID: "run", Title: "Long-running modes:"},
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
