package backup

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/takak2166/promptsync/internal/models"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return tmpFile
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
		libraries   int
		current     string
		prompts     int
	}{
		{
			name: "Export with two libraries",
			content: `{
				"version": 1,
				"currentLibraryId": "2",
				"libraries": [
					{"id": "1", "name": "Lib", "categories": [{"id": "c1", "name": "Style"}],
					 "prompts": [{"id": "p1", "categoryId": "c1", "text": "anime style"}]},
					{"id": "2", "name": "Portraits", "categories": [], "prompts": []}
				]
			}`,
			libraries: 2,
			current:   "2",
			prompts:   1,
		},
		{
			name: "Legacy flat dump becomes one library",
			content: `{
				"categories": [{"id": "1", "name": "Style"}],
				"prompts": [
					{"id": "1", "categoryId": "1", "text": "anime style"},
					{"id": "2", "categoryId": "1", "text": "realistic"},
					{"id": "3", "categoryId": "1", "text": "  "}
				],
				"selectedPrompts": ["1"]
			}`,
			libraries: 1,
			prompts:   2,
		},
		{
			name:      "Unknown current falls back to first",
			content:   `{"currentLibraryId": "gone", "libraries": [{"id": "1", "name": "Lib"}]}`,
			libraries: 1,
			current:   "1",
		},
		{
			name:        "Duplicate library ids",
			content:     `{"libraries": [{"id": "1", "name": "A"}, {"id": "1", "name": "B"}]}`,
			expectError: true,
		},
		{
			name:        "Empty library list",
			content:     `{"libraries": []}`,
			expectError: true,
		},
		{
			name:        "Unrelated JSON",
			content:     `{"pages": []}`,
			expectError: true,
		},
		{
			name:        "Not JSON",
			content:     `prompts`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			err := p.ParseFile(writeTemp(t, tt.content))
			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFile() error = %v", err)
			}

			libs := p.GetLibraries()
			if len(libs) != tt.libraries {
				t.Fatalf("Expected %d libraries, got %d", tt.libraries, len(libs))
			}
			if tt.current != "" && p.CurrentLibraryID() != tt.current {
				t.Errorf("Expected current %q, got %q", tt.current, p.CurrentLibraryID())
			}
			if len(libs[0].Prompts) != tt.prompts {
				t.Errorf("Expected %d prompts, got %d", tt.prompts, len(libs[0].Prompts))
			}
			if libs[0].Categories == nil || libs[0].Prompts == nil {
				t.Error("Expected non-nil category and prompt slices")
			}
		})
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	libs := []models.Library{{
		ID:         "1",
		Name:       "Lib",
		Categories: []models.Category{{ID: "c1", Name: "Style"}},
		Prompts:    []models.Prompt{{ID: "p1", CategoryID: "c1", Text: "anime style", Chinese: "动漫风格"}},
	}}
	path := filepath.Join(t.TempDir(), "out.json")

	if err := WriteFile(path, libs, "1", time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := New()
	if err := p.ParseFile(path); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if !reflect.DeepEqual(p.GetLibraries(), libs) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", p.GetLibraries(), libs)
	}
	if p.CurrentLibraryID() != "1" {
		t.Errorf("Expected current 1, got %q", p.CurrentLibraryID())
	}
}

func TestConvertToMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		library  models.Library
		expected string
	}{
		{
			name: "Prompts grouped by category",
			library: models.Library{
				Name:       "Lib",
				Categories: []models.Category{{ID: "c1", Name: "Style"}, {ID: "c2", Name: "Lighting"}},
				Prompts: []models.Prompt{
					{ID: "p1", CategoryID: "c1", Text: "anime style"},
					{ID: "p2", CategoryID: "c1", Text: "watercolor", Chinese: "水彩", Remark: "soft edges"},
				},
			},
			expected: "# Lib\n\n## Style\n\n- anime style\n- watercolor (水彩)\n  - soft edges\n\n## Lighting\n\n_No prompts_\n",
		},
		{
			name: "Orphan prompts and images",
			library: models.Library{
				Name:       "Lib",
				Categories: []models.Category{},
				Prompts: []models.Prompt{
					{ID: "p1", CategoryID: "gone", Text: "golden hour", ImageURL: "https://raw.example/p1.png"},
				},
			},
			expected: "# Lib\n\n## unknown category\n\n- golden hour\n  - ![golden hour](https://raw.example/p1.png)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertToMarkdown(&tt.library)
			if got != tt.expected {
				t.Errorf("ConvertToMarkdown() = %q, want %q", got, tt.expected)
			}
		})
	}
}
