package main

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/app"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
)

var tuiCmd = &cobra.Command{
	Use:     "tui",
	GroupID: "run",
	Short:   "Open the interactive board (default when no command is given)",
	Args:    cobra.NoArgs,
	RunE:    runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.Path = db
	}
	// Log lines on stderr would tear through the alt screen.
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(filepath.Dir(cfg.Database.Path), "taskcheck.log")
	}

	e, err := openEnvWith(cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	sortKey, err := status.ParseSortKey(cfg.Display.Sort)
	if err != nil {
		return err
	}

	m := app.New(e.store, app.Options{
		Sort:      sortKey,
		ExportDir: cfg.Backup.Dir,
		Logger:    e.logger("app"),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	final, err := p.Run()
	if fm, ok := final.(app.Model); ok {
		fm.Close()
	}
	if err != nil && cmd.Context().Err() != nil {
		// Interrupted; the board was already torn down.
		return nil
	}
	return err
}

func init() {
	rootCmd.RunE = runTUI
	rootCmd.Args = cobra.NoArgs
	rootCmd.AddCommand(tuiCmd)
}
