package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"lib"},
	Short:   "Manage prompt libraries",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List libraries; the current one is marked with *",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		libs, currentID, err := current.ws.Libraries(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tNAME\tCATEGORIES\tPROMPTS")
		for _, lib := range libs {
			mark := ""
			if lib.ID == currentID {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", mark, lib.ID, lib.Name, len(lib.Categories), len(lib.Prompts))
		}
		return w.Flush()
	},
}

var libraryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an empty library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := current.ws.AddLibrary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created library %s (%s)\n", lib.Name, lib.ID)
		return nil
	},
}

var libraryRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a library",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.RenameLibrary(cmd.Context(), args[0], args[1])
	},
}

var libraryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a library and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.DeleteLibrary(cmd.Context(), args[0])
	},
}

var librarySwitchCmd = &cobra.Command{
	Use:   "switch <id>",
	Short: "Make a library current and clear the selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.SwitchLibrary(cmd.Context(), args[0])
	},
}

func init() {
	libraryCmd.AddCommand(libraryListCmd, libraryAddCmd, libraryRenameCmd, libraryDeleteCmd, librarySwitchCmd)
	rootCmd.AddCommand(libraryCmd)
}
