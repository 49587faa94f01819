// Package catalog edits the local library set: libraries, categories, prompts and the selection.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/takak2166/promptsync/internal/id"
	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/validation"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrLastLibrary   = errors.New("at least one library must remain")
	ErrCategoryInUse = errors.New("category is still used by prompts")
	ErrNoImageHost   = errors.New("image host is not configured")
)

// ImageHost stores prompt preview images
type ImageHost interface {
	UploadPromptImage(ctx context.Context, promptID, filename string, data []byte) (string, error)
	DeleteByURL(ctx context.Context, imageURL string) error
}

// ImageHostFunc builds the image host from current settings
type ImageHostFunc func(ctx context.Context) (ImageHost, error)

// Catalog serialises read-modify-write cycles on the library set within this process
type Catalog struct {
	mu     sync.Mutex
	store  *store.Store
	images ImageHostFunc
}

// New creates a catalog over st. images may be nil when no image host is set up.
func New(st *store.Store, images ImageHostFunc) *Catalog {
	return &Catalog{store: st, images: images}
}

type nameInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

func cleanName(name string) (string, error) {
	in := nameInput{Name: strings.TrimSpace(name)}
	if err := validation.Struct(in); err != nil {
		return "", err
	}
	return in.Name, nil
}

// snapshot is the library set with the current library resolved
type snapshot struct {
	libs    []models.Library
	current string
	idx     int
}

func (s *snapshot) lib() *models.Library {
	return &s.libs[s.idx]
}

// load reads the library set. The current library must exist.
func (c *Catalog) load(ctx context.Context) (*snapshot, error) {
	libs, current, err := c.store.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read libraries: %w", err)
	}
	idx := models.FindLibrary(libs, current)
	if idx < 0 {
		if len(libs) == 0 {
			return nil, fmt.Errorf("no libraries: %w", ErrNotFound)
		}
		idx = 0
		current = libs[0].ID
	}
	return &snapshot{libs: libs, current: current, idx: idx}, nil
}

// save writes the library set and current pointer plus any extra keys in one transaction
func (c *Catalog) save(ctx context.Context, s *snapshot, extra map[string]any) error {
	values := map[string]any{
		store.KeyLibraries:        s.libs,
		store.KeyCurrentLibraryID: s.current,
	}
	for k, v := range extra {
		values[k] = v
	}
	if err := c.store.Set(ctx, values); err != nil {
		return fmt.Errorf("write libraries: %w", err)
	}
	return nil
}

// EnsureDefault seeds a starter library on first run and reports whether it did
func (c *Catalog) EnsureDefault(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	libs, _, err := c.store.Libraries(ctx)
	if err != nil {
		return false, fmt.Errorf("read libraries: %w", err)
	}
	if len(libs) > 0 {
		return false, nil
	}

	lib := DefaultLibrary()
	if err := c.store.ReplaceLibraries(ctx, []models.Library{lib}, lib.ID); err != nil {
		return false, fmt.Errorf("seed default library: %w", err)
	}

	logger.Info("Created default library", map[string]interface{}{
		"library":    lib.ID,
		"categories": len(lib.Categories),
		"prompts":    len(lib.Prompts),
	})
	return true, nil
}

var seedPrompts = []struct {
	category string
	texts    []string
}{
	{"Style", []string{"anime style", "realistic", "oil painting", "watercolor"}},
	{"Subject", []string{"beautiful girl", "landscape", "portrait"}},
	{"Scene", []string{"cyberpunk city", "fantasy world", "sunset beach"}},
	{"Lighting", []string{"soft lighting", "dramatic lighting", "golden hour"}},
	{"Quality", []string{"masterpiece", "best quality", "8k uhd"}},
}

// DefaultLibrary is the starter library with sample categories and prompts
func DefaultLibrary() models.Library {
	lib := models.Library{
		ID:         id.MustGenerate(),
		Name:       "Default",
		Categories: []models.Category{},
		Prompts:    []models.Prompt{},
	}
	for _, seed := range seedPrompts {
		cat := models.Category{ID: id.MustGenerate(), Name: seed.category}
		lib.Categories = append(lib.Categories, cat)
		for _, text := range seed.texts {
			lib.Prompts = append(lib.Prompts, models.Prompt{ID: id.MustGenerate(), CategoryID: cat.ID, Text: text})
		}
	}
	return lib
}
