package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists; pass --force to overwrite", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := model.SaveConfig(path, model.DefaultAppConfig()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := model.LoadConfig(path)
		if err != nil {
			return err
		}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.Database.Path = db
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config file:     %s\n", path)
		fmt.Fprintf(out, "database.path:   %s\n", cfg.Database.Path)
		fmt.Fprintf(out, "display.sort:    %s\n", cfg.Display.Sort)
		fmt.Fprintf(out, "log.file:        %s\n", orNone(cfg.Log.File, "stderr"))
		fmt.Fprintf(out, "backup.dir:      %s\n", cfg.Backup.Dir)
		fmt.Fprintf(out, "backup.schedule: %s\n", orNone(cfg.Backup.Schedule, "off"))
		fmt.Fprintf(out, "backup.keep:     %d\n", cfg.Backup.Keep)
		fmt.Fprintf(out, "inbox.dir:       %s\n", cfg.Inbox.Dir)
		fmt.Fprintf(out, "feed.port:       %d\n", cfg.Feed.Port)
		return nil
	},
}

func orNone(v, none string) string {
	if v == "" {
		return "(" + none + ")"
	}
	return v
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
