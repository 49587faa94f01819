package catalog

import (
	"context"
	"fmt"

	"github.com/takak2166/promptsync/internal/id"
	"github.com/takak2166/promptsync/internal/models"
)

// AddCategory appends a category to the current library
func (c *Catalog) AddCategory(ctx context.Context, name string) (models.Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.Category{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return models.Category{}, err
	}
	cat := models.Category{ID: id.MustGenerate(), Name: name}
	s.lib().Categories = append(s.lib().Categories, cat)
	if err := c.save(ctx, s, nil); err != nil {
		return models.Category{}, err
	}
	return cat, nil
}

// RenameCategory changes a category name in the current library
func (c *Catalog) RenameCategory(ctx context.Context, categoryID, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return err
	}
	cat, ok := s.lib().Category(categoryID)
	if !ok {
		return fmt.Errorf("category %q: %w", categoryID, ErrNotFound)
	}
	cat.Name = name
	return c.save(ctx, s, nil)
}

// DeleteCategory removes a category that no prompt references
func (c *Catalog) DeleteCategory(ctx context.Context, categoryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return err
	}
	lib := s.lib()
	if _, ok := lib.Category(categoryID); !ok {
		return fmt.Errorf("category %q: %w", categoryID, ErrNotFound)
	}

	used := 0
	for _, p := range lib.Prompts {
		if p.CategoryID == categoryID {
			used++
		}
	}
	if used > 0 {
		return fmt.Errorf("%w (%d prompts)", ErrCategoryInUse, used)
	}

	kept := lib.Categories[:0]
	for _, cat := range lib.Categories {
		if cat.ID != categoryID {
			kept = append(kept, cat)
		}
	}
	lib.Categories = kept
	return c.save(ctx, s, nil)
}
