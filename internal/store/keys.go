package store

import (
	"context"
	"time"

	"github.com/takak2166/promptsync/internal/models"
)

// Keys of interest to the sync core and the UI surfaces.
const (
	KeyLibraries        = "libraries"
	KeyCurrentLibraryID = "currentLibraryId"
	KeySelectedPrompts  = "selectedPrompts"
	KeyTemporaryTags    = "temporaryTags"
	KeyFeishuConfig     = "feishuConfig"
	KeyNotionConfig     = "notionConfig"
	KeyGitHubConfig     = "githubConfig"
	KeyLastSyncTime     = "lastSyncTime"
	KeyLastSyncStatus   = "lastSyncStatus"
	KeyLastSyncError    = "lastSyncError"
)

// Libraries returns the stored library set and the current library pointer. When the
// pointer is unset it defaults to the first library.
func (s *Store) Libraries(ctx context.Context) ([]models.Library, string, error) {
	var libs []models.Library
	if _, err := s.getJSON(ctx, KeyLibraries, &libs); err != nil {
		return nil, "", err
	}
	var current string
	if _, err := s.getJSON(ctx, KeyCurrentLibraryID, &current); err != nil {
		return nil, "", err
	}
	if current == "" && len(libs) > 0 {
		current = libs[0].ID
	}
	return libs, current, nil
}

// ReplaceLibraries swaps the whole library set and the current pointer in one write, and
// clears the selection because it is scoped to the previous current library.
func (s *Store) ReplaceLibraries(ctx context.Context, libs []models.Library, currentID string) error {
	return s.Set(ctx, map[string]any{
		KeyLibraries:        libs,
		KeyCurrentLibraryID: currentID,
		KeySelectedPrompts:  []string{},
		KeyTemporaryTags:    []string{},
	})
}

// Selection is the copy-to-clipboard working set of the current library
type Selection struct {
	PromptIDs     []string `json:"selectedPrompts"`
	TemporaryTags []string `json:"temporaryTags"`
}

// Selection returns the selected prompt ids and temporary tags
func (s *Store) Selection(ctx context.Context) (Selection, error) {
	var sel Selection
	if _, err := s.getJSON(ctx, KeySelectedPrompts, &sel.PromptIDs); err != nil {
		return Selection{}, err
	}
	if _, err := s.getJSON(ctx, KeyTemporaryTags, &sel.TemporaryTags); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

// SyncStatus returns the outcome of the last sync
func (s *Store) SyncStatus(ctx context.Context) (models.SyncStatus, error) {
	var st models.SyncStatus
	var millis int64
	ok, err := s.getJSON(ctx, KeyLastSyncTime, &millis)
	if err != nil {
		return st, err
	}
	if ok && millis > 0 {
		st.LastSyncTime = time.UnixMilli(millis)
	}
	if _, err := s.getJSON(ctx, KeyLastSyncStatus, &st.LastSyncStatus); err != nil {
		return st, err
	}
	if _, err := s.getJSON(ctx, KeyLastSyncError, &st.LastSyncError); err != nil {
		return st, err
	}
	return st, nil
}

// RecordSyncSuccess stamps the sync time and clears any previous error
func (s *Store) RecordSyncSuccess(ctx context.Context, at time.Time) error {
	return s.Set(ctx, map[string]any{
		KeyLastSyncTime:   at.UnixMilli(),
		KeyLastSyncStatus: models.SyncSuccess,
		KeyLastSyncError:  "",
	})
}

// RecordSyncFailure keeps the time of the last success and stores the failure message
func (s *Store) RecordSyncFailure(ctx context.Context, msg string) error {
	return s.Set(ctx, map[string]any{
		KeyLastSyncStatus: models.SyncFailed,
		KeyLastSyncError:  msg,
	})
}

// FeishuConfig returns the stored Bitable settings; a zero value when never saved
func (s *Store) FeishuConfig(ctx context.Context) (models.FeishuConfig, error) {
	var cfg models.FeishuConfig
	_, err := s.getJSON(ctx, KeyFeishuConfig, &cfg)
	return cfg, err
}

// NotionConfig returns the stored Notion settings; a zero value when never saved
func (s *Store) NotionConfig(ctx context.Context) (models.NotionConfig, error) {
	var cfg models.NotionConfig
	_, err := s.getJSON(ctx, KeyNotionConfig, &cfg)
	return cfg, err
}

// GitHubConfig returns the stored image host settings; a zero value when never saved
func (s *Store) GitHubConfig(ctx context.Context) (models.GitHubConfig, error) {
	var cfg models.GitHubConfig
	_, err := s.getJSON(ctx, KeyGitHubConfig, &cfg)
	return cfg, err
}
