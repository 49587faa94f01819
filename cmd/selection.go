package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Build the prompt text to copy from selected prompts and tags",
}

var selectToggleCmd = &cobra.Command{
	Use:   "toggle <prompt-id>",
	Short: "Select or deselect a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := current.ws.ToggleSelection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		state := "deselected"
		if selected {
			state = "selected"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Prompt %s %s\n", args[0], state)
		return nil
	},
}

var selectClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear selected prompts and temporary tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.ClearSelection(cmd.Context())
	},
}

var selectTagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage temporary tags appended to the copied text",
}

var selectTagAddCmd = &cobra.Command{
	Use:   "add <tag>",
	Short: "Add a temporary tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.AddTag(cmd.Context(), args[0])
	},
}

var selectTagRemoveCmd = &cobra.Command{
	Use:   "remove <tag>",
	Short: "Remove a temporary tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.RemoveTag(cmd.Context(), args[0])
	},
}

var selectCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Print the assembled prompt text",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := current.ws.SelectionText(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	selectTagCmd.AddCommand(selectTagAddCmd, selectTagRemoveCmd)
	selectCmd.AddCommand(selectToggleCmd, selectClearCmd, selectTagCmd, selectCopyCmd)
	rootCmd.AddCommand(selectCmd)
}
