package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/backup"
	"github.com/nhle/taskcheck/internal/feed"
	appsync "github.com/nhle/taskcheck/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "run",
	Short:   "Publish live state over WebSocket and run scheduled backups",
	Long: `Publish the full state to WebSocket clients at /ws whenever anything
changes, run the backup schedule (backup.schedule) if one is configured, and
with --inbox also import files dropped into the inbox directory. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		port := e.cfg.Feed.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		withInbox, _ := cmd.Flags().GetBool("inbox")

		initial, err := e.store.Snapshot(ctx)
		if err != nil {
			return err
		}

		server := feed.NewServer(&feed.Config{Port: port, Logger: e.logger("feed")})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving live state on ws://%s/ws\n", server.GetAddr())

		if e.cfg.Backup.Schedule != "" {
			sched := backup.New(e.store, e.cfg.Backup.Dir, e.cfg.Backup.Keep, e.logger("backup"))
			if _, err := sched.Schedule(e.cfg.Backup.Schedule); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
			if next, ok := sched.Next(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Next backup at %s\n", next.Format("2006-01-02 15:04"))
			}
		}

		syncer := appsync.New(e.store, e.logger("sync"))
		sess := syncer.Start(ctx, *initial)
		defer sess.Stop()
		if err := server.Publish(initial.Clone()); err != nil {
			return err
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		inboxErr := make(chan error, 1)
		if withInbox {
			go func() {
				err := runInbox(runCtx, e, e.cfg.Inbox.Dir)
				if err != nil {
					cancel()
				}
				inboxErr <- err
			}()
		} else {
			close(inboxErr)
		}

		server.Run(runCtx, sess.Updates())
		cancel()
		return <-inboxErr
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default feed.port)")
	serveCmd.Flags().Bool("inbox", false, "Also import files dropped into inbox.dir")
	rootCmd.AddCommand(serveCmd)
}
