package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/inbox"
	"github.com/nhle/taskcheck/internal/transfer"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "run",
	Short:   "Import export files dropped into the inbox directory",
	Long: `Import export files dropped into the inbox directory (inbox.dir).
Imported files are moved to imported/; files that fail are moved to rejected/
next to a .err file with the reason. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = e.cfg.Inbox.Dir
		}
		return runInbox(cmd.Context(), e, dir)
	},
}

func runInbox(ctx context.Context, e *env, dir string) error {
	importer := transfer.NewImporter(e.store, e.logger("import"))
	cfg := inbox.DefaultConfig()
	cfg.Logger = e.logger("inbox")

	w, err := inbox.New(importer, dir, cfg)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func init() {
	watchCmd.Flags().String("dir", "", "Directory to watch (default inbox.dir)")
	rootCmd.AddCommand(watchCmd)
}
