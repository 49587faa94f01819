package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
)

type fakeImages struct {
	uploaded []string
	deleted  []string
	failDel  bool
}

func (f *fakeImages) UploadPromptImage(_ context.Context, promptID, filename string, _ []byte) (string, error) {
	url := "https://raw.example/prompts/prompt_" + promptID + "_" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) DeleteByURL(_ context.Context, imageURL string) error {
	if f.failDel {
		return errors.New("404 Not Found")
	}
	f.deleted = append(f.deleted, imageURL)
	return nil
}

func newTestCatalog(t *testing.T) (*Catalog, *store.Store, *fakeImages) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	images := &fakeImages{}
	c := New(st, func(context.Context) (ImageHost, error) { return images, nil })
	return c, st, images
}

// seeded returns a catalog holding one library with one category and one prompt
func seeded(t *testing.T) (*Catalog, *store.Store, *fakeImages) {
	t.Helper()
	c, st, images := newTestCatalog(t)
	require.NoError(t, st.ReplaceLibraries(context.Background(), []models.Library{{
		ID:         "1",
		Name:       "Lib",
		Categories: []models.Category{{ID: "c1", Name: "Style"}},
		Prompts:    []models.Prompt{{ID: "p1", CategoryID: "c1", Text: "anime style"}},
	}}, "1"))
	return c, st, images
}

func TestEnsureDefault(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	created, err := c.EnsureDefault(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	lib, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default", lib.Name)
	var names []string
	for _, cat := range lib.Categories {
		names = append(names, cat.Name)
	}
	assert.Equal(t, []string{"Style", "Subject", "Scene", "Lighting", "Quality"}, names)
	assert.Len(t, lib.Prompts, 16)

	created, err = c.EnsureDefault(ctx)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLibraries(t *testing.T) {
	c, st, _ := seeded(t)
	ctx := context.Background()

	other, err := c.AddLibrary(ctx, "  Portraits ")
	require.NoError(t, err)
	assert.Equal(t, "Portraits", other.Name)

	_, err = c.AddLibrary(ctx, "   ")
	assert.EqualError(t, err, "name is required")

	require.NoError(t, c.RenameLibrary(ctx, other.ID, "Faces"))
	assert.ErrorIs(t, c.RenameLibrary(ctx, "missing", "x"), ErrNotFound)

	// Switching clears the selection of the previous library
	_, err = c.ToggleSelection(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, c.SwitchLibrary(ctx, other.ID))
	sel, err := st.Selection(ctx)
	require.NoError(t, err)
	assert.Empty(t, sel.PromptIDs)

	lib, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Faces", lib.Name)
	assert.ErrorIs(t, c.SwitchLibrary(ctx, "missing"), ErrNotFound)

	// Deleting the current library moves to the first remaining one
	require.NoError(t, c.DeleteLibrary(ctx, other.ID))
	libs, current, err := c.Libraries(ctx)
	require.NoError(t, err)
	assert.Len(t, libs, 1)
	assert.Equal(t, "1", current)

	assert.ErrorIs(t, c.DeleteLibrary(ctx, "1"), ErrLastLibrary)
}

func TestCategories(t *testing.T) {
	c, _, _ := seeded(t)
	ctx := context.Background()

	cat, err := c.AddCategory(ctx, "Lighting")
	require.NoError(t, err)
	require.NoError(t, c.RenameCategory(ctx, cat.ID, "Light"))

	err = c.DeleteCategory(ctx, "c1")
	assert.ErrorIs(t, err, ErrCategoryInUse)
	assert.Contains(t, err.Error(), "1 prompts")

	require.NoError(t, c.DeleteCategory(ctx, cat.ID))
	assert.ErrorIs(t, c.DeleteCategory(ctx, cat.ID), ErrNotFound)

	lib, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{ID: "c1", Name: "Style"}}, lib.Categories)
}

func TestPrompts(t *testing.T) {
	c, _, _ := seeded(t)
	ctx := context.Background()

	p, err := c.AddPrompt(ctx, PromptInput{CategoryID: "c1", Text: " golden hour ", Chinese: "黄金时刻"})
	require.NoError(t, err)
	assert.Equal(t, "golden hour", p.Text)

	_, err = c.AddPrompt(ctx, PromptInput{CategoryID: "c1"})
	assert.EqualError(t, err, "text is required")
	_, err = c.AddPrompt(ctx, PromptInput{CategoryID: "nope", Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := c.UpdatePrompt(ctx, p.ID, PromptInput{CategoryID: "c1", Text: "blue hour", Remark: "cool"})
	require.NoError(t, err)
	assert.Equal(t, "blue hour", updated.Text)
	assert.Empty(t, updated.Chinese)
	assert.Equal(t, "cool", updated.Remark)

	_, err = c.UpdatePrompt(ctx, "missing", PromptInput{CategoryID: "c1", Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePrompts(t *testing.T) {
	c, st, images := seeded(t)
	ctx := context.Background()

	url, err := c.AttachImage(ctx, "p1", "a.png", []byte("png"))
	require.NoError(t, err)
	_, err = c.ToggleSelection(ctx, "p1")
	require.NoError(t, err)

	assert.ErrorIs(t, c.DeletePrompts(ctx, "p1", "missing"), ErrNotFound)
	require.NoError(t, c.DeletePrompts(ctx, "p1"))

	lib, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, lib.Prompts)
	assert.Equal(t, []string{url}, images.deleted)

	sel, err := st.Selection(ctx)
	require.NoError(t, err)
	assert.Empty(t, sel.PromptIDs)
}

func TestDeletePrompts_ImageFailureIsNotFatal(t *testing.T) {
	c, _, images := seeded(t)
	ctx := context.Background()

	_, err := c.AttachImage(ctx, "p1", "a.png", []byte("png"))
	require.NoError(t, err)
	images.failDel = true

	require.NoError(t, c.DeletePrompts(ctx, "p1"))
}

func TestAttachImage_ReplacesPrevious(t *testing.T) {
	c, _, images := seeded(t)
	ctx := context.Background()

	first, err := c.AttachImage(ctx, "p1", "a.png", []byte("1"))
	require.NoError(t, err)
	second, err := c.AttachImage(ctx, "p1", "b.png", []byte("2"))
	require.NoError(t, err)

	assert.Equal(t, []string{first}, images.deleted)
	lib, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, lib.Prompts[0].ImageURL)

	_, err = c.AttachImage(ctx, "missing", "c.png", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, images.uploaded, 2)
}

func TestAttachImage_NoHost(t *testing.T) {
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = New(st, nil).AttachImage(context.Background(), "p1", "a.png", nil)
	assert.ErrorIs(t, err, ErrNoImageHost)
}

func TestSelectionText(t *testing.T) {
	c, _, _ := seeded(t)
	ctx := context.Background()

	p2, err := c.AddPrompt(ctx, PromptInput{CategoryID: "c1", Text: "masterpiece"})
	require.NoError(t, err)

	for _, id := range []string{p2.ID, "p1"} {
		selected, err := c.ToggleSelection(ctx, id)
		require.NoError(t, err)
		assert.True(t, selected)
	}
	require.NoError(t, c.AddTag(ctx, "8k"))
	require.NoError(t, c.AddTag(ctx, "8k"))

	text, err := c.SelectionText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "masterpiece, anime style, 8k", text)

	selected, err := c.ToggleSelection(ctx, p2.ID)
	require.NoError(t, err)
	assert.False(t, selected)
	require.NoError(t, c.RemoveTag(ctx, "8k"))

	text, err = c.SelectionText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "anime style", text)

	require.NoError(t, c.ClearSelection(ctx))
	text, err = c.SelectionText(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = c.ToggleSelection(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportLibraries(t *testing.T) {
	c, st, _ := seeded(t)
	ctx := context.Background()
	_, err := c.ToggleSelection(ctx, "p1")
	require.NoError(t, err)

	imported := []models.Library{
		{ID: "a", Name: "A", Categories: []models.Category{}, Prompts: []models.Prompt{}},
		{ID: "b", Name: "B", Categories: []models.Category{}, Prompts: []models.Prompt{}},
	}
	require.NoError(t, c.ImportLibraries(ctx, imported, "gone"))

	libs, current, err := c.Libraries(ctx)
	require.NoError(t, err)
	assert.Equal(t, imported, libs)
	assert.Equal(t, "a", current)

	sel, err := st.Selection(ctx)
	require.NoError(t, err)
	assert.Empty(t, sel.PromptIDs)

	assert.ErrorIs(t, c.ImportLibraries(ctx, nil, ""), ErrLastLibrary)
}
