// Package workspace is the set of operations UI surfaces perform on local data. Local runs
// them in-process against the store; the loopback API client runs them through a daemon that
// holds the store.
package workspace

import (
	"context"

	"github.com/takak2166/promptsync/internal/catalog"
	"github.com/takak2166/promptsync/internal/imagehost"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/syncer"
)

// Workspace is implemented by Local and by the loopback API client
type Workspace interface {
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
	Handle(ctx context.Context, action string) syncer.Result
	SyncStatus(ctx context.Context) (models.SyncStatus, error)

	Libraries(ctx context.Context) ([]models.Library, string, error)
	Current(ctx context.Context) (models.Library, error)
	AddLibrary(ctx context.Context, name string) (models.Library, error)
	RenameLibrary(ctx context.Context, libraryID, name string) error
	DeleteLibrary(ctx context.Context, libraryID string) error
	SwitchLibrary(ctx context.Context, libraryID string) error
	ImportLibraries(ctx context.Context, libs []models.Library, currentID string) error

	AddCategory(ctx context.Context, name string) (models.Category, error)
	RenameCategory(ctx context.Context, categoryID, name string) error
	DeleteCategory(ctx context.Context, categoryID string) error

	AddPrompt(ctx context.Context, in catalog.PromptInput) (models.Prompt, error)
	UpdatePrompt(ctx context.Context, promptID string, in catalog.PromptInput) (models.Prompt, error)
	DeletePrompts(ctx context.Context, promptIDs ...string) error
	AttachImage(ctx context.Context, promptID, filename string, data []byte) (string, error)

	Selection(ctx context.Context) (store.Selection, error)
	ToggleSelection(ctx context.Context, promptID string) (bool, error)
	ClearSelection(ctx context.Context) error
	AddTag(ctx context.Context, tag string) error
	RemoveTag(ctx context.Context, tag string) error
	SelectionText(ctx context.Context) (string, error)

	ListImages(ctx context.Context) ([]imagehost.Image, error)
	TestImageHost(ctx context.Context) error

	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, section Section, patch map[string]string, test bool) error
}

// Local runs every operation against a store opened by this process
type Local struct {
	*catalog.Catalog
	*syncer.Orchestrator

	store   *store.Store
	images  func(context.Context) (*imagehost.Client, error)
	testers Testers
}

var _ Workspace = (*Local)(nil)

// Option configures a Local workspace
type Option func(*Local)

// WithTesters replaces the credential checks run by SaveSettings
func WithTesters(t Testers) Option {
	return func(l *Local) { l.testers = t }
}

// WithImageHost replaces the image host built from saved settings
func WithImageHost(f func(context.Context) (*imagehost.Client, error)) Option {
	return func(l *Local) { l.images = f }
}

// New wires a catalog and an orchestrator over st. connect builds the remote table per cycle.
func New(st *store.Store, connect syncer.Connector, opts ...Option) *Local {
	l := &Local{
		store:   st,
		images:  imagehost.FromStore(st),
		testers: DefaultTesters(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.Catalog = catalog.New(st, func(ctx context.Context) (catalog.ImageHost, error) {
		c, err := l.images(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	l.Orchestrator = syncer.New(st, connect)
	return l
}

// Store returns the underlying store
func (l *Local) Store() *store.Store {
	return l.store
}

// SyncStatus returns the outcome of the last sync
func (l *Local) SyncStatus(ctx context.Context) (models.SyncStatus, error) {
	return l.store.SyncStatus(ctx)
}

// Selection returns the selected prompt ids and temporary tags
func (l *Local) Selection(ctx context.Context) (store.Selection, error) {
	return l.store.Selection(ctx)
}

// ListImages lists the images on the configured host
func (l *Local) ListImages(ctx context.Context) ([]imagehost.Image, error) {
	c, err := l.images(ctx)
	if err != nil {
		return nil, err
	}
	return c.List(ctx)
}

// TestImageHost checks that the saved token can read the image repository
func (l *Local) TestImageHost(ctx context.Context) error {
	c, err := l.images(ctx)
	if err != nil {
		return err
	}
	return c.Test(ctx)
}
