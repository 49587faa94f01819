// Package mapper converts between the library tree and flat remote rows.
package mapper

import (
	"github.com/takak2166/promptsync/internal/models"
)

// Flatten emits, per library, its marker row, then its category rows, then its prompt rows.
// Reconstruct depends on this order.
func Flatten(libs []models.Library) []models.Row {
	var rows []models.Row
	for _, lib := range libs {
		rows = append(rows, models.Row{
			Kind:        models.KindLibrary,
			LibraryID:   lib.ID,
			LibraryName: lib.Name,
		})

		for _, c := range lib.Categories {
			rows = append(rows, models.Row{
				Kind:         models.KindCategory,
				LibraryID:    lib.ID,
				LibraryName:  lib.Name,
				CategoryID:   c.ID,
				CategoryName: c.Name,
			})
		}

		for _, p := range lib.Prompts {
			row := models.Row{
				Kind:        models.KindPrompt,
				LibraryID:   lib.ID,
				LibraryName: lib.Name,
				CategoryID:  p.CategoryID,
				PromptID:    p.ID,
				Text:        p.Text,
				Chinese:     p.Chinese,
				Remark:      p.Remark,
				ImageURL:    p.ImageURL,
			}
			// Denormalized for people reading the table; ignored on the way back
			if c, ok := lib.Category(p.CategoryID); ok {
				row.CategoryName = c.Name
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// Classify infers what a row represents from the fields it carries. The Kind column is not
// consulted, so exports written before it existed read the same way.
func Classify(r models.Row) models.RowKind {
	switch {
	case r.PromptID != "" && r.Text != "":
		return models.KindPrompt
	case r.PromptID == "" && r.CategoryID != "" && r.CategoryName != "":
		return models.KindCategory
	default:
		return models.KindLibrary
	}
}

// Reconstruct rebuilds the library tree from rows in a single ordered scan. Repeated ids are
// ignored, and rows for a library that has not been introduced yet are skipped.
func Reconstruct(rows []models.Row) []models.Library {
	var libs []models.Library
	index := make(map[string]int)

	for _, r := range rows {
		if r.LibraryID == "" {
			continue
		}

		kind := Classify(r)
		if kind == models.KindLibrary {
			if _, ok := index[r.LibraryID]; !ok {
				index[r.LibraryID] = len(libs)
				libs = append(libs, models.Library{
					ID:         r.LibraryID,
					Name:       r.LibraryName,
					Categories: []models.Category{},
					Prompts:    []models.Prompt{},
				})
			}
			continue
		}

		i, ok := index[r.LibraryID]
		if !ok {
			continue
		}
		lib := &libs[i]

		switch kind {
		case models.KindCategory:
			if _, exists := lib.Category(r.CategoryID); !exists {
				lib.Categories = append(lib.Categories, models.Category{
					ID:   r.CategoryID,
					Name: r.CategoryName,
				})
			}
		case models.KindPrompt:
			if _, exists := lib.Prompt(r.PromptID); !exists {
				lib.Prompts = append(lib.Prompts, models.Prompt{
					ID:         r.PromptID,
					CategoryID: r.CategoryID,
					Text:       r.Text,
					Chinese:    r.Chinese,
					Remark:     r.Remark,
					ImageURL:   r.ImageURL,
				})
			}
		}
	}
	return libs
}

// CurrentLibraryID is the pointer a pull installs: the first reconstructed library
func CurrentLibraryID(libs []models.Library) string {
	if len(libs) == 0 {
		return ""
	}
	return libs[0].ID
}
