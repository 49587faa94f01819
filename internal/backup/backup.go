// Package backup reads and writes library exports and renders libraries as Markdown.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/takak2166/promptsync/internal/id"
	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
)

// FormatVersion is written to every export
const FormatVersion = 1

// Export is the on-disk backup of the local library set
type Export struct {
	Version          int              `json:"version"`
	ExportedAt       time.Time        `json:"exportedAt"`
	CurrentLibraryID string           `json:"currentLibraryId,omitempty"`
	Libraries        []models.Library `json:"libraries"`
}

// legacyDump is the flat single-library layout older versions stored
type legacyDump struct {
	Categories []models.Category `json:"categories"`
	Prompts    []models.Prompt   `json:"prompts"`
}

// Parser handles reading an export file into libraries
type Parser struct {
	export *Export
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// ParseFile reads an export, or a legacy flat dump which becomes a single library
func (p *Parser) ParseFile(filepath string) error {
	logger.Debug("Reading library export file", map[string]interface{}{
		"filepath": filepath,
	})

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	export := &Export{}
	switch {
	case top["libraries"] != nil:
		if err := json.Unmarshal(data, export); err != nil {
			return fmt.Errorf("failed to parse export: %w", err)
		}
	case top["categories"] != nil || top["prompts"] != nil:
		var legacy legacyDump
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("failed to parse legacy dump: %w", err)
		}
		export.Libraries = []models.Library{{
			ID:         id.MustGenerate(),
			Name:       "Imported",
			Categories: legacy.Categories,
			Prompts:    legacy.Prompts,
		}}
	default:
		return fmt.Errorf("file has neither libraries nor categories/prompts")
	}

	if err := normalize(export); err != nil {
		return err
	}
	p.export = export

	logger.Info("Successfully parsed library export file", map[string]interface{}{
		"libraries_count": len(export.Libraries),
	})
	return nil
}

// normalize fills missing ids and slices and drops prompts without text
func normalize(e *Export) error {
	if len(e.Libraries) == 0 {
		return fmt.Errorf("export contains no libraries")
	}

	seen := make(map[string]bool)
	for i := range e.Libraries {
		lib := &e.Libraries[i]
		if lib.ID == "" {
			lib.ID = id.MustGenerate()
		}
		if seen[lib.ID] {
			return fmt.Errorf("duplicate library id %q", lib.ID)
		}
		seen[lib.ID] = true
		if strings.TrimSpace(lib.Name) == "" {
			lib.Name = "Imported"
		}
		if lib.Categories == nil {
			lib.Categories = []models.Category{}
		}

		prompts := make([]models.Prompt, 0, len(lib.Prompts))
		for _, pr := range lib.Prompts {
			if strings.TrimSpace(pr.Text) == "" {
				continue
			}
			if pr.ID == "" {
				pr.ID = id.MustGenerate()
			}
			prompts = append(prompts, pr)
		}
		lib.Prompts = prompts
	}

	if models.FindLibrary(e.Libraries, e.CurrentLibraryID) < 0 {
		e.CurrentLibraryID = e.Libraries[0].ID
	}
	return nil
}

// GetLibraries returns the parsed libraries
func (p *Parser) GetLibraries() []models.Library {
	if p.export == nil {
		return nil
	}
	return p.export.Libraries
}

// CurrentLibraryID returns the current library recorded in the export
func (p *Parser) CurrentLibraryID() string {
	if p.export == nil {
		return ""
	}
	return p.export.CurrentLibraryID
}

// WriteFile saves libraries as an export file
func WriteFile(filepath string, libs []models.Library, currentID string, at time.Time) error {
	export := Export{
		Version:          FormatVersion,
		ExportedAt:       at.UTC(),
		CurrentLibraryID: currentID,
		Libraries:        libs,
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(filepath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Info("Wrote library export file", map[string]interface{}{
		"filepath":        filepath,
		"libraries_count": len(libs),
	})
	return nil
}

// ConvertToMarkdown renders a library grouped by category. Prompts whose category no longer
// exists are listed last.
func ConvertToMarkdown(lib *models.Library) string {
	logger.Debug("Converting library to markdown", map[string]interface{}{
		"library": lib.Name,
	})

	var md strings.Builder
	md.WriteString(fmt.Sprintf("# %s\n", lib.Name))

	byCategory := make(map[string][]models.Prompt)
	for _, pr := range lib.Prompts {
		key := pr.CategoryID
		if _, ok := lib.Category(key); !ok {
			key = ""
		}
		byCategory[key] = append(byCategory[key], pr)
	}

	for _, cat := range lib.Categories {
		writeSection(&md, cat.Name, byCategory[cat.ID])
	}
	if orphans := byCategory[""]; len(orphans) > 0 {
		writeSection(&md, models.UnknownCategory, orphans)
	}
	return md.String()
}

func writeSection(md *strings.Builder, title string, prompts []models.Prompt) {
	md.WriteString(fmt.Sprintf("\n## %s\n\n", title))
	if len(prompts) == 0 {
		md.WriteString("_No prompts_\n")
		return
	}
	for _, pr := range prompts {
		line := "- " + pr.Text
		if pr.Chinese != "" {
			line += " (" + pr.Chinese + ")"
		}
		md.WriteString(line + "\n")
		if pr.Remark != "" {
			md.WriteString("  - " + pr.Remark + "\n")
		}
		if pr.ImageURL != "" {
			md.WriteString(fmt.Sprintf("  - ![%s](%s)\n", pr.Text, pr.ImageURL))
		}
	}
}
