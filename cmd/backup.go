package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/takak2166/promptsync/internal/backup"
	"github.com/takak2166/promptsync/internal/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write all libraries to a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		libs, currentID, err := current.ws.Libraries(cmd.Context())
		if err != nil {
			return err
		}
		if err := backup.WriteFile(args[0], libs, currentID, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d libraries to %s\n", len(libs), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all libraries with a JSON backup or a legacy flat dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := backup.New()
		if err := p.ParseFile(args[0]); err != nil {
			return err
		}
		libs := p.GetLibraries()
		if err := current.ws.ImportLibraries(cmd.Context(), libs, p.CurrentLibraryID()); err != nil {
			return fmt.Errorf("import libraries: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d libraries\n", len(libs))
		return nil
	},
}

var markdownCmd = &cobra.Command{
	Use:   "markdown <dir>",
	Short: "Write one markdown file per library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir := args[0]
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		libs, _, err := current.ws.Libraries(cmd.Context())
		if err != nil {
			return err
		}

		written := 0
		for i := range libs {
			mdFilePath := filepath.Join(outputDir, fileName(libs[i].Name)+".md")
			if err := os.WriteFile(mdFilePath, []byte(backup.ConvertToMarkdown(&libs[i])), 0644); err != nil {
				logger.Error("Failed to save markdown file", err, map[string]interface{}{
					"library":  libs[i].Name,
					"filepath": mdFilePath,
				})
				continue
			}
			written++
		}

		logger.Info("Markdown export completed", map[string]interface{}{
			"total_libraries": len(libs),
			"success_count":   written,
			"markdown_output": outputDir,
		})
		if written < len(libs) {
			return fmt.Errorf("%d of %d libraries could not be written", len(libs)-written, len(libs))
		}
		return nil
	},
}

// fileName makes a library name safe as a file name
func fileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "library"
	}
	return name
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, markdownCmd)
}
