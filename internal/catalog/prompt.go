package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/takak2166/promptsync/internal/id"
	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/validation"
)

// PromptInput is the editable part of a prompt
type PromptInput struct {
	CategoryID string `json:"categoryId" validate:"required"`
	Text       string `json:"text" validate:"required,max=2000"`
	Chinese    string `json:"chinese" validate:"max=2000"`
	Remark     string `json:"remark" validate:"max=2000"`
}

func (in PromptInput) clean() (PromptInput, error) {
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.Text = strings.TrimSpace(in.Text)
	in.Chinese = strings.TrimSpace(in.Chinese)
	in.Remark = strings.TrimSpace(in.Remark)
	if err := validation.Struct(in); err != nil {
		return in, err
	}
	return in, nil
}

// AddPrompt appends a prompt to the current library. The category must exist when the
// prompt is created; later deletions may leave it dangling.
func (c *Catalog) AddPrompt(ctx context.Context, in PromptInput) (models.Prompt, error) {
	in, err := in.clean()
	if err != nil {
		return models.Prompt{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return models.Prompt{}, err
	}
	if _, ok := s.lib().Category(in.CategoryID); !ok {
		return models.Prompt{}, fmt.Errorf("category %q: %w", in.CategoryID, ErrNotFound)
	}

	p := models.Prompt{
		ID:         id.MustGenerate(),
		CategoryID: in.CategoryID,
		Text:       in.Text,
		Chinese:    in.Chinese,
		Remark:     in.Remark,
	}
	s.lib().Prompts = append(s.lib().Prompts, p)
	if err := c.save(ctx, s, nil); err != nil {
		return models.Prompt{}, err
	}
	return p, nil
}

// UpdatePrompt replaces the editable fields of a prompt in the current library
func (c *Catalog) UpdatePrompt(ctx context.Context, promptID string, in PromptInput) (models.Prompt, error) {
	in, err := in.clean()
	if err != nil {
		return models.Prompt{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return models.Prompt{}, err
	}
	p, ok := s.lib().Prompt(promptID)
	if !ok {
		return models.Prompt{}, fmt.Errorf("prompt %q: %w", promptID, ErrNotFound)
	}
	if p.CategoryID != in.CategoryID {
		if _, ok := s.lib().Category(in.CategoryID); !ok {
			return models.Prompt{}, fmt.Errorf("category %q: %w", in.CategoryID, ErrNotFound)
		}
	}

	p.CategoryID = in.CategoryID
	p.Text = in.Text
	p.Chinese = in.Chinese
	p.Remark = in.Remark
	updated := *p
	if err := c.save(ctx, s, nil); err != nil {
		return models.Prompt{}, err
	}
	return updated, nil
}

// DeletePrompts removes prompts from the current library and drops them from the selection.
// Their images are deleted on a best-effort basis.
func (c *Catalog) DeletePrompts(ctx context.Context, promptIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return err
	}
	lib := s.lib()

	var images []string
	for _, pid := range promptIDs {
		p, ok := lib.Prompt(pid)
		if !ok {
			return fmt.Errorf("prompt %q: %w", pid, ErrNotFound)
		}
		if p.ImageURL != "" {
			images = append(images, p.ImageURL)
		}
	}

	lib.Prompts = slices.DeleteFunc(lib.Prompts, func(p models.Prompt) bool {
		return slices.Contains(promptIDs, p.ID)
	})

	sel, err := c.store.Selection(ctx)
	if err != nil {
		return fmt.Errorf("read selection: %w", err)
	}
	selected := slices.DeleteFunc(sel.PromptIDs, func(pid string) bool {
		return slices.Contains(promptIDs, pid)
	})
	if selected == nil {
		selected = []string{}
	}

	if err := c.save(ctx, s, map[string]any{store.KeySelectedPrompts: selected}); err != nil {
		return err
	}

	for _, u := range images {
		c.deleteImage(ctx, u)
	}
	logger.Info("Deleted prompts", map[string]interface{}{"count": len(promptIDs)})
	return nil
}

// AttachImage uploads data as the preview image of a prompt, replacing any previous one
func (c *Catalog) AttachImage(ctx context.Context, promptID, filename string, data []byte) (string, error) {
	if c.images == nil {
		return "", ErrNoImageHost
	}
	host, err := c.images(ctx)
	if err != nil {
		return "", err
	}

	// Check the prompt first so nothing is uploaded for an unknown id
	if _, err := c.findPrompt(ctx, promptID); err != nil {
		return "", err
	}

	url, err := host.UploadPromptImage(ctx, promptID, filename, data)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx)
	if err != nil {
		return "", err
	}
	p, ok := s.lib().Prompt(promptID)
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", promptID, ErrNotFound)
	}
	previous := p.ImageURL
	p.ImageURL = url
	if err := c.save(ctx, s, nil); err != nil {
		return "", err
	}

	if previous != "" && previous != url {
		c.deleteImage(ctx, previous)
	}
	return url, nil
}

func (c *Catalog) findPrompt(ctx context.Context, promptID string) (models.Prompt, error) {
	s, err := c.load(ctx)
	if err != nil {
		return models.Prompt{}, err
	}
	p, ok := s.lib().Prompt(promptID)
	if !ok {
		return models.Prompt{}, fmt.Errorf("prompt %q: %w", promptID, ErrNotFound)
	}
	return *p, nil
}

// deleteImage logs failures and never fails the caller
func (c *Catalog) deleteImage(ctx context.Context, imageURL string) {
	if c.images == nil {
		return
	}
	host, err := c.images(ctx)
	if err == nil {
		err = host.DeleteByURL(ctx, imageURL)
	}
	if err != nil {
		logger.Warn("Failed to delete prompt image", err, map[string]interface{}{"url": imageURL})
	}
}
