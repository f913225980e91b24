package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/model"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	GroupID: "data",
	Short:   "Manage categories and their checklist templates",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a category",
	Example: `  taskcheck category add 朝の準備 -i 歯磨き -i 朝食
  taskcheck category add Travel --item Tickets --item Passport`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, _ := cmd.Flags().GetStringArray("item")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		c, err := e.store.CreateCategory(cmd.Context(), args[0], items)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created category %q (%s) with %d items\n", c.Name, c.ID, len(items))
		return nil
	},
}

var categoryEditCmd = &cobra.Command{
	Use:   "edit CATEGORY",
	Short: "Rename a category or replace its checklist",
	Long: `Rename a category with --name, or replace its checklist with --item.

Replacing the checklist recreates every template, so the matching checks on
existing tasks restart as not done. Items added to a single task are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		items, _ := cmd.Flags().GetStringArray("item")
		replaceItems := cmd.Flags().Changed("item") || cmd.Flags().Changed("clear-items")
		if name == "" && !replaceItems {
			return fmt.Errorf("nothing to change; pass --name, --item or --clear-items")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		c, err := findCategory(ctx, e.store, args[0])
		if err != nil {
			return err
		}
		if name == "" {
			name = c.Name
		}

		if replaceItems {
			err = e.store.UpdateCategory(ctx, c.ID, name, items)
		} else {
			err = e.store.RenameCategory(ctx, c.ID, name)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated category %q\n", name)
		return nil
	},
}

var categoryRmCmd = &cobra.Command{
	Use:     "rm CATEGORY",
	Aliases: []string{"delete"},
	Short:   "Delete a category with all of its tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		c, err := findCategory(ctx, e.store, args[0])
		if err != nil {
			return err
		}
		if err := e.store.DeleteCategory(ctx, c.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %q\n", c.Name)
		return nil
	},
}

var categoryLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List categories",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		snap, err := e.store.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		printCategories(cmd, *snap)
		return nil
	},
}

func printCategories(cmd *cobra.Command, snap model.Snapshot) {
	if len(snap.Categories) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No categories.")
		return
	}

	items := make(map[string][]string)
	for _, ci := range snap.CheckItems {
		if ci.CategoryID != nil {
			items[*ci.CategoryID] = append(items[*ci.CategoryID], ci.Name)
		}
	}
	tasks := make(map[string]int)
	for _, t := range snap.Tasks {
		tasks[t.CategoryID]++
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tITEMS\tTASKS")
	for _, c := range snap.Categories {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", shortID(c.ID), c.Name, len(items[c.ID]), tasks[c.ID])
	}
	w.Flush()
}

func init() {
	categoryAddCmd.Flags().StringArrayP("item", "i", nil, "Checklist item (repeatable, in order)")

	categoryEditCmd.Flags().String("name", "", "New name")
	categoryEditCmd.Flags().StringArrayP("item", "i", nil, "Replacement checklist item (repeatable, in order)")
	categoryEditCmd.Flags().Bool("clear-items", false, "Remove every checklist item")

	categoryCmd.AddCommand(categoryAddCmd, categoryEditCmd, categoryRmCmd, categoryLsCmd)
	rootCmd.AddCommand(categoryCmd)
}
