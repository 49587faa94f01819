package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/takak2166/promptsync/internal/store"
)

// ToggleSelection adds or removes a prompt of the current library from the selection and
// reports whether it is now selected
func (c *Catalog) ToggleSelection(ctx context.Context, promptID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.findPrompt(ctx, promptID); err != nil {
		return false, err
	}
	sel, err := c.store.Selection(ctx)
	if err != nil {
		return false, fmt.Errorf("read selection: %w", err)
	}

	ids := sel.PromptIDs
	selected := !slices.Contains(ids, promptID)
	if selected {
		ids = append(ids, promptID)
	} else {
		ids = slices.DeleteFunc(ids, func(s string) bool { return s == promptID })
	}
	if ids == nil {
		ids = []string{}
	}

	if err := c.store.Set(ctx, map[string]any{store.KeySelectedPrompts: ids}); err != nil {
		return false, fmt.Errorf("write selection: %w", err)
	}
	return selected, nil
}

// ClearSelection empties the selected prompts and temporary tags
func (c *Catalog) ClearSelection(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Set(ctx, clearedSelection)
}

// AddTag appends a free-text tag used only for the next copy
func (c *Catalog) AddTag(ctx context.Context, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("tag is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sel, err := c.store.Selection(ctx)
	if err != nil {
		return fmt.Errorf("read selection: %w", err)
	}
	if slices.Contains(sel.TemporaryTags, tag) {
		return nil
	}
	return c.store.Set(ctx, map[string]any{store.KeyTemporaryTags: append(sel.TemporaryTags, tag)})
}

// RemoveTag drops a temporary tag
func (c *Catalog) RemoveTag(ctx context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel, err := c.store.Selection(ctx)
	if err != nil {
		return fmt.Errorf("read selection: %w", err)
	}
	tags := slices.DeleteFunc(sel.TemporaryTags, func(t string) bool { return t == tag })
	if tags == nil {
		tags = []string{}
	}
	return c.store.Set(ctx, map[string]any{store.KeyTemporaryTags: tags})
}

// SelectionText joins the selected prompt texts, in selection order, and the temporary tags
// with ", ". Ids that no longer resolve in the current library are skipped.
func (c *Catalog) SelectionText(ctx context.Context) (string, error) {
	s, err := c.load(ctx)
	if err != nil {
		return "", err
	}
	sel, err := c.store.Selection(ctx)
	if err != nil {
		return "", fmt.Errorf("read selection: %w", err)
	}

	parts := make([]string, 0, len(sel.PromptIDs)+len(sel.TemporaryTags))
	for _, pid := range sel.PromptIDs {
		if p, ok := s.lib().Prompt(pid); ok {
			parts = append(parts, p.Text)
		}
	}
	parts = append(parts, sel.TemporaryTags...)
	return strings.Join(parts, ", "), nil
}
