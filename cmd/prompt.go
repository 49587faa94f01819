package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/takak2166/promptsync/internal/catalog"
)

var promptInput catalog.PromptInput

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage prompts of the current library",
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts, optionally of one category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := current.ws.Current(cmd.Context())
		if err != nil {
			return err
		}
		sel, err := current.ws.Selection(cmd.Context())
		if err != nil {
			return err
		}
		selected := make(map[string]bool, len(sel.PromptIDs))
		for _, id := range sel.PromptIDs {
			selected[id] = true
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tCATEGORY\tTEXT\tCHINESE")
		for _, p := range lib.Prompts {
			if promptInput.CategoryID != "" && p.CategoryID != promptInput.CategoryID {
				continue
			}
			mark := ""
			if selected[p.ID] {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, p.ID, lib.CategoryName(p.CategoryID), p.Text, p.Chinese)
		}
		return w.Flush()
	},
}

var promptAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := current.ws.AddPrompt(cmd.Context(), promptInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created prompt %s\n", p.ID)
		return nil
	},
}

var promptUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a prompt; omitted flags keep their value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := current.ws.Current(cmd.Context())
		if err != nil {
			return err
		}
		p, ok := lib.Prompt(args[0])
		if !ok {
			return fmt.Errorf("prompt %s: %w", args[0], catalog.ErrNotFound)
		}

		in := catalog.PromptInput{CategoryID: p.CategoryID, Text: p.Text, Chinese: p.Chinese, Remark: p.Remark}
		flags := cmd.Flags()
		if flags.Changed("category") {
			in.CategoryID = promptInput.CategoryID
		}
		if flags.Changed("text") {
			in.Text = promptInput.Text
		}
		if flags.Changed("chinese") {
			in.Chinese = promptInput.Chinese
		}
		if flags.Changed("remark") {
			in.Remark = promptInput.Remark
		}

		_, err = current.ws.UpdatePrompt(cmd.Context(), args[0], in)
		return err
	},
}

var promptDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete prompts and their images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.ws.DeletePrompts(cmd.Context(), args...)
	},
}

func init() {
	promptListCmd.Flags().StringVar(&promptInput.CategoryID, "category", "", "only prompts of this category id")

	for _, c := range []*cobra.Command{promptAddCmd, promptUpdateCmd} {
		c.Flags().StringVar(&promptInput.CategoryID, "category", "", "category id")
		c.Flags().StringVar(&promptInput.Text, "text", "", "prompt text")
		c.Flags().StringVar(&promptInput.Chinese, "chinese", "", "Chinese translation")
		c.Flags().StringVar(&promptInput.Remark, "remark", "", "free-form note")
	}
	_ = promptAddCmd.MarkFlagRequired("category")
	_ = promptAddCmd.MarkFlagRequired("text")

	promptCmd.AddCommand(promptListCmd, promptAddCmd, promptUpdateCmd, promptDeleteCmd)
	rootCmd.AddCommand(promptCmd)
}
