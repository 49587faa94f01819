package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage prompt preview images on the GitHub image host",
}

var imageAttachCmd = &cobra.Command{
	Use:   "attach <prompt-id> <file>",
	Short: "Upload an image and attach it to a prompt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		url, err := current.ws.AttachImage(cmd.Context(), args[0], filepath.Base(args[1]), data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

var imageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List images stored on the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		images, err := current.ws.ListImages(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tURL")
		for _, img := range images {
			fmt.Fprintf(w, "%s\t%d\t%s\n", img.Name, img.Size, img.URL)
		}
		return w.Flush()
	},
}

var imageTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the saved GitHub token can read the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.ws.TestImageHost(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "GitHub connection OK")
		return nil
	},
}

func init() {
	imageCmd.AddCommand(imageAttachCmd, imageListCmd, imageTestCmd)
	rootCmd.AddCommand(imageCmd)
}
