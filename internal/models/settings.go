package models

import "time"

// SyncState is the outcome of the last sync attempt
type SyncState string

const (
	SyncSuccess SyncState = "success"
	SyncFailed  SyncState = "failed"
)

// SyncStatus is written only by the sync orchestrator
type SyncStatus struct {
	LastSyncTime   time.Time `json:"lastSyncTime"`
	LastSyncStatus SyncState `json:"lastSyncStatus,omitempty"`
	LastSyncError  string    `json:"lastSyncError,omitempty"`
}

// FeishuConfig addresses a Bitable table. WikiNodeToken, when set, is resolved to the app token.
type FeishuConfig struct {
	AppID         string `json:"appId" validate:"required"`
	AppSecret     string `json:"appSecret" validate:"required"`
	AppToken      string `json:"appToken" validate:"required_without=WikiNodeToken"`
	TableID       string `json:"tableId" validate:"required"`
	WikiNodeToken string `json:"wikiNodeToken,omitempty"`
}

// NotionConfig addresses a Notion database. ParentPageID, when set, is searched for an inline database.
type NotionConfig struct {
	Token        string `json:"token" validate:"required"`
	DatabaseID   string `json:"databaseId" validate:"required_without=ParentPageID"`
	ParentPageID string `json:"parentPageId,omitempty"`
}

// GitHubConfig addresses the repository used as image host
type GitHubConfig struct {
	Owner string `json:"owner" validate:"required"`
	Repo  string `json:"repo" validate:"required"`
	Token string `json:"token" validate:"required"`
	Path  string `json:"path,omitempty"`
}
