package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/ui/detail"
)

var checkCmd = &cobra.Command{
	Use:     "check",
	GroupID: "data",
	Short:   "Tick items and manage a task's own checklist lines",
}

var checkToggleCmd = &cobra.Command{
	Use:   "toggle TASK ITEM",
	Short: "Flip an item between done and not done",
	Long: `Flip an item between done and not done. ITEM is the number shown by
"task show" or the item's name.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		t, err := findTask(ctx, e.store, args[0])
		if err != nil {
			return err
		}
		snap, err := e.store.Snapshot(ctx)
		if err != nil {
			return err
		}
		line, err := findLine(detail.Lines(*snap, t.ID), args[1])
		if err != nil {
			return err
		}
		if err := e.store.ToggleTaskCheck(ctx, line.Check.ID); err != nil {
			return err
		}

		state := "done"
		if line.Check.IsDone {
			state = "not done"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%q is now %s\n", line.Item.Name, state)
		return nil
	},
}

var checkAddCmd = &cobra.Command{
	Use:   "add TASK NAME",
	Short: "Add an item to one task only",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		t, err := findTask(ctx, e.store, args[0])
		if err != nil {
			return err
		}
		item, err := e.store.AddTaskCheckItem(ctx, t.ID, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %q\n", item.Name, t.Name)
		return nil
	},
}

var checkRmCmd = &cobra.Command{
	Use:     "rm TASK ITEM",
	Aliases: []string{"delete"},
	Short:   "Remove an item that was added to this task only",
	Long: `Remove an item that was added to this task only. Items that come from
the category are changed with "category edit".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		t, err := findTask(ctx, e.store, args[0])
		if err != nil {
			return err
		}
		snap, err := e.store.Snapshot(ctx)
		if err != nil {
			return err
		}
		line, err := findLine(detail.Lines(*snap, t.ID), args[1])
		if err != nil {
			return err
		}
		if !line.Item.IsAdHoc() {
			return fmt.Errorf("%q belongs to category %q; use \"category edit\" to change it",
				line.Item.Name, snap.CategoryName(t.CategoryID))
		}
		if err := e.store.DeleteCheckItem(ctx, line.Item.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from %q\n", line.Item.Name, t.Name)
		return nil
	},
}

// findLine resolves a 1-based line number or an item name.
func findLine(lines []detail.Line, ref string) (detail.Line, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(lines) {
			return detail.Line{}, fmt.Errorf("item %d out of range (task has %d)", n, len(lines))
		}
		return lines[n-1], nil
	}

	ref = strings.TrimSpace(ref)
	for _, l := range lines {
		if l.Item.Name == ref {
			return l, nil
		}
	}
	var folded []detail.Line
	for _, l := range lines {
		if strings.EqualFold(l.Item.Name, ref) {
			folded = append(folded, l)
		}
	}
	if len(folded) == 1 {
		return folded[0], nil
	}
	return detail.Line{}, fmt.Errorf("no item %q on this task", ref)
}

func init() {
	checkCmd.AddCommand(checkToggleCmd, checkAddCmd, checkRmCmd)
	rootCmd.AddCommand(checkCmd)
}
