package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/dates"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/store"
	"github.com/nhle/taskcheck/internal/ui/detail"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "data",
	Short:   "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a task with its category's checklist",
	Example: `  taskcheck task add 月曜 -c 朝の準備
  taskcheck task add "Osaka trip" -c Travel --due "next friday 9am" --note "shinkansen"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catRef, _ := cmd.Flags().GetString("category")
		note, _ := cmd.Flags().GetString("note")
		dueText, _ := cmd.Flags().GetString("due")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		c, err := findCategory(ctx, e.store, catRef)
		if err != nil {
			return err
		}
		task := model.Task{CategoryID: c.ID, Name: args[0], Note: note}
		if dueText != "" {
			due, err := dates.ParseDue(dueText, time.Now())
			if err != nil {
				return err
			}
			task.DueTo = &due
		}

		created, err := e.store.CreateTask(ctx, task)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task %q (%s) in %q\n", created.Name, created.ID, c.Name)
		return nil
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit TASK",
	Short: "Change a task's name, note or due date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch store.TaskPatch
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			patch.Name = &name
		}
		if cmd.Flags().Changed("note") {
			note, _ := cmd.Flags().GetString("note")
			patch.Note = &note
		}
		patch.ClearDue, _ = cmd.Flags().GetBool("clear-due")
		if cmd.Flags().Changed("due") {
			dueText, _ := cmd.Flags().GetString("due")
			due, err := dates.ParseDue(dueText, time.Now())
			if err != nil {
				return err
			}
			patch.DueTo = &due
		}
		if patch.Name == nil && patch.Note == nil && patch.DueTo == nil && !patch.ClearDue {
			return fmt.Errorf("nothing to change; pass --name, --note, --due or --clear-due")
		}

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
		if err := e.store.UpdateTask(ctx, t.ID, patch); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", shortID(t.ID))
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm TASK",
	Aliases: []string{"delete"},
	Short:   "Delete a task and its checklist",
	Args:    cobra.ExactArgs(1),
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
		if err := e.store.DeleteTask(ctx, t.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %q\n", t.Name)
		return nil
	},
}

var taskLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks with their status",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catRef, _ := cmd.Flags().GetString("category")
		sortFlag, _ := cmd.Flags().GetString("sort")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		if sortFlag == "" {
			sortFlag = e.cfg.Display.Sort
		}
		key, err := status.ParseSortKey(sortFlag)
		if err != nil {
			return err
		}

		catID := ""
		if catRef != "" {
			c, err := findCategory(ctx, e.store, catRef)
			if err != nil {
				return err
			}
			catID = c.ID
		}

		snap, err := e.store.Snapshot(ctx)
		if err != nil {
			return err
		}
		printTasks(cmd.OutOrStdout(), *snap, catID, key, time.Now())
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show TASK",
	Short: "Show a task's checklist",
	Args:  cobra.ExactArgs(1),
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
		printTask(cmd.OutOrStdout(), *snap, *t)
		return nil
	},
}

func printTasks(out io.Writer, snap model.Snapshot, categoryID string, key status.SortKey, now time.Time) {
	var tasks []model.Task
	for _, t := range snap.Tasks {
		if categoryID == "" || t.CategoryID == categoryID {
			tasks = append(tasks, t)
		}
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return
	}

	statuses := status.Index(tasks, snap.TaskChecks)
	sorted := status.Sort(tasks, key, func(t model.Task) model.TaskStatus { return statuses[t.ID] })

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tDONE\tDUE\tNAME\tCATEGORY")
	for _, t := range sorted {
		done, total := status.Progress(snap.ChecksForTask(t.ID))
		due := dates.Format(t.DueTo)
		if statuses[t.ID] != model.StatusDone && dates.Overdue(t.DueTo, now) {
			due += " (overdue)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\t%s\n",
			shortID(t.ID), statuses[t.ID], done, total, due, t.Name, snap.CategoryName(t.CategoryID))
	}
	w.Flush()
}

func printTask(out io.Writer, snap model.Snapshot, t model.Task) {
	lines := detail.Lines(snap, t.ID)
	checks := make([]model.TaskCheck, len(lines))
	for i, l := range lines {
		checks[i] = l.Check
	}
	done, total := status.Progress(checks)

	fmt.Fprintf(out, "%s  [%s %d/%d]\n", t.Name, status.Compute(checks), done, total)
	fmt.Fprintf(out, "  id:       %s\n", t.ID)
	fmt.Fprintf(out, "  category: %s\n", snap.CategoryName(t.CategoryID))
	if t.DueTo != nil {
		fmt.Fprintf(out, "  due:      %s\n", dates.Format(t.DueTo))
	}
	if t.Note != "" {
		fmt.Fprintf(out, "  note:     %s\n", strings.ReplaceAll(t.Note, "\n", "\n            "))
	}
	fmt.Fprintln(out)

	if len(lines) == 0 {
		fmt.Fprintln(out, "  (no checklist items)")
	}
	for i, l := range lines {
		box := "[ ]"
		if l.Check.IsDone {
			box = "[x]"
		}
		suffix := ""
		if l.Item.IsAdHoc() {
			suffix = "  (this task only)"
		}
		fmt.Fprintf(out, "  %2d. %s %s%s\n", i+1, box, l.Item.Name, suffix)
	}
}

func init() {
	taskAddCmd.Flags().StringP("category", "c", "", "Category name or id (required)")
	taskAddCmd.Flags().String("note", "", "Free-form note")
	taskAddCmd.Flags().String("due", "", `Due date: "2026-10-20", "2026-10-20 09:00", "tomorrow", "next friday 9am"`)
	_ = taskAddCmd.MarkFlagRequired("category")

	taskEditCmd.Flags().String("name", "", "New name")
	taskEditCmd.Flags().String("note", "", "New note (empty clears it)")
	taskEditCmd.Flags().String("due", "", "New due date")
	taskEditCmd.Flags().Bool("clear-due", false, "Remove the due date")
	taskEditCmd.MarkFlagsMutuallyExclusive("due", "clear-due")

	taskLsCmd.Flags().StringP("category", "c", "", "Only tasks in this category")
	taskLsCmd.Flags().StringP("sort", "s", "", "Order: due_to, status or created_at (default display.sort)")

	taskCmd.AddCommand(taskAddCmd, taskEditCmd, taskRmCmd, taskLsCmd, taskShowCmd)
	rootCmd.AddCommand(taskCmd)
}
