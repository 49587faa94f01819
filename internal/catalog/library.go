package catalog

import (
	"context"
	"fmt"

	"github.com/takak2166/promptsync/internal/id"
	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
)

// clearedSelection resets the selection, which is scoped to the current library
var clearedSelection = map[string]any{
	store.KeySelectedPrompts: []string{},
	store.KeyTemporaryTags:   []string{},
}

// Libraries returns every library and the current library id
func (c *Catalog) Libraries(ctx context.Context) ([]models.Library, string, error) {
	return c.store.Libraries(ctx)
}

// Current returns the current library
func (c *Catalog) Current(ctx context.Context) (models.Library, error) {
	s, err := c.load(ctx)
	if err != nil {
		return models.Library{}, err
	}
	return *s.lib(), nil
}

// AddLibrary appends an empty library; the current library is unchanged
func (c *Catalog) AddLibrary(ctx context.Context, name string) (models.Library, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.Library{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	libs, current, err := c.store.Libraries(ctx)
	if err != nil {
		return models.Library{}, fmt.Errorf("read libraries: %w", err)
	}

	lib := models.Library{ID: id.MustGenerate(), Name: name, Categories: []models.Category{}, Prompts: []models.Prompt{}}
	libs = append(libs, lib)
	if current == "" {
		current = lib.ID
	}

	if err := c.save(ctx, &snapshot{libs: libs, current: current}, nil); err != nil {
		return models.Library{}, err
	}
	logger.Info("Added library", map[string]interface{}{"library": lib.ID, "name": name})
	return lib, nil
}

// RenameLibrary changes a library name
func (c *Catalog) RenameLibrary(ctx context.Context, libraryID, name string) error {
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
	idx := models.FindLibrary(s.libs, libraryID)
	if idx < 0 {
		return fmt.Errorf("library %q: %w", libraryID, ErrNotFound)
	}
	s.libs[idx].Name = name
	return c.save(ctx, s, nil)
}

// DeleteLibrary removes a library. The last library cannot be removed. Deleting the current
// library moves the pointer to the first remaining one and clears the selection.
func (c *Catalog) DeleteLibrary(ctx context.Context, libraryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return err
	}
	idx := models.FindLibrary(s.libs, libraryID)
	if idx < 0 {
		return fmt.Errorf("library %q: %w", libraryID, ErrNotFound)
	}
	if len(s.libs) == 1 {
		return ErrLastLibrary
	}

	s.libs = append(s.libs[:idx], s.libs[idx+1:]...)
	var extra map[string]any
	if s.current == libraryID {
		s.current = s.libs[0].ID
		extra = clearedSelection
	}

	if err := c.save(ctx, s, extra); err != nil {
		return err
	}
	logger.Info("Deleted library", map[string]interface{}{"library": libraryID, "current": s.current})
	return nil
}

// SwitchLibrary makes another library current and clears the selection
func (c *Catalog) SwitchLibrary(ctx context.Context, libraryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return err
	}
	if models.FindLibrary(s.libs, libraryID) < 0 {
		return fmt.Errorf("library %q: %w", libraryID, ErrNotFound)
	}
	if s.current == libraryID {
		return nil
	}
	s.current = libraryID
	return c.save(ctx, s, clearedSelection)
}

// ImportLibraries replaces the whole library set, e.g. from a backup file. An unknown
// currentID falls back to the first library. The selection is cleared.
func (c *Catalog) ImportLibraries(ctx context.Context, libs []models.Library, currentID string) error {
	if len(libs) == 0 {
		return ErrLastLibrary
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if models.FindLibrary(libs, currentID) < 0 {
		currentID = libs[0].ID
	}
	if err := c.store.ReplaceLibraries(ctx, libs, currentID); err != nil {
		return fmt.Errorf("store libraries: %w", err)
	}
	logger.Info("Imported libraries", map[string]interface{}{"libraries": len(libs), "current": currentID})
	return nil
}
