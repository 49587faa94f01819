// Package config loads process settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/validation"
)

// Backends accepted for sync_backend
const (
	BackendBitable = "bitable"
	BackendNotion  = "notion"
)

// Config is the process configuration. Remote credentials here only seed the settings
// command; sync always reads credentials from the local store.
type Config struct {
	LogLevel       string        `mapstructure:"log_level" json:"logLevel" validate:"oneof=debug info warn warning error"`
	StorePath      string        `mapstructure:"store_path" json:"storePath" validate:"required"`
	Backend        string        `mapstructure:"sync_backend" json:"syncBackend" validate:"oneof=bitable notion"`
	FirstSyncDelay time.Duration `mapstructure:"first_sync_delay" json:"firstSyncDelay"`
	SyncInterval   time.Duration `mapstructure:"sync_interval" json:"syncInterval"`
	ListenAddr     string        `mapstructure:"listen_addr" json:"listenAddr" validate:"required"`

	Feishu Feishu `mapstructure:"feishu" json:"-"`
	Notion Notion `mapstructure:"notion" json:"-"`
	GitHub GitHub `mapstructure:"github" json:"-"`
}

// Feishu holds optional Bitable credentials
type Feishu struct {
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	AppToken      string `mapstructure:"app_token"`
	TableID       string `mapstructure:"table_id"`
	WikiNodeToken string `mapstructure:"wiki_node_token"`
}

// Model converts to the stored settings shape
func (f Feishu) Model() models.FeishuConfig {
	return models.FeishuConfig(f)
}

// Notion holds optional Notion credentials
type Notion struct {
	Token        string `mapstructure:"token"`
	DatabaseID   string `mapstructure:"database_id"`
	ParentPageID string `mapstructure:"parent_page_id"`
}

// Model converts to the stored settings shape
func (n Notion) Model() models.NotionConfig {
	return models.NotionConfig(n)
}

// GitHub holds optional image host credentials
type GitHub struct {
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`
	Token string `mapstructure:"token"`
	Path  string `mapstructure:"path"`
}

// Model converts to the stored settings shape
func (g GitHub) Model() models.GitHubConfig {
	return models.GitHubConfig(g)
}

var defaults = map[string]any{
	"log_level":        "info",
	"store_path":       "data",
	"sync_backend":     BackendBitable,
	"first_sync_delay": time.Minute,
	"sync_interval":    24 * time.Hour,
	"listen_addr":      "127.0.0.1:8787",

	"feishu.app_id":          "",
	"feishu.app_secret":      "",
	"feishu.app_token":       "",
	"feishu.table_id":        "",
	"feishu.wiki_node_token": "",
	"notion.token":           "",
	"notion.database_id":     "",
	"notion.parent_page_id":  "",
	"github.owner":           "",
	"github.repo":            "",
	"github.token":           "",
	"github.path":            "",
}

// Load reads configuration. cfgFile may be empty, in which case ./promptsync.yaml is used
// when present. Environment variables use the PROMPTSYNC_ prefix with dots as underscores,
// e.g. PROMPTSYNC_FEISHU_APP_ID; LOG_LEVEL is also honoured.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("PROMPTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("log_level", "PROMPTSYNC_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("promptsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Backend = strings.ToLower(cfg.Backend)

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
