package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories of the current library",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with their prompt counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := current.ws.Current(cmd.Context())
		if err != nil {
			return err
		}
		counts := make(map[string]int)
		for _, p := range lib.Prompts {
			counts[p.CategoryID]++
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROMPTS")
		for _, c := range lib.Categories {
			fmt.Fprintf(w, "%s\t%s\t%d\n", c.ID, c.Name, counts[c.ID])
		}
		return w.Flush()
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current.ws.AddCategory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created category %s (%s)\n", c.Name, c.ID)
		return nil
	},
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.RenameCategory(cmd.Context(), args[0], args[1])
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an unused category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.DeleteCategory(cmd.Context(), args[0])
	},
}

func init() {
	categoryCmd.AddCommand(categoryListCmd, categoryAddCmd, categoryRenameCmd, categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}
