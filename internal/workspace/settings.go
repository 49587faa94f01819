package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/takak2166/promptsync/internal/bitable"
	"github.com/takak2166/promptsync/internal/imagehost"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/notion"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/validation"
)

// Section names one group of saved credentials
type Section string

const (
	SectionFeishu Section = "feishu"
	SectionNotion Section = "notion"
	SectionGitHub Section = "github"
)

// Settings is the saved credentials with secrets masked
type Settings struct {
	Feishu models.FeishuConfig `json:"feishu"`
	Notion models.NotionConfig `json:"notion"`
	GitHub models.GitHubConfig `json:"github"`
}

// Testers check credentials against the live service before they are saved
type Testers struct {
	Feishu func(context.Context, models.FeishuConfig) error
	Notion func(context.Context, models.NotionConfig) error
	GitHub func(context.Context, models.GitHubConfig) error
}

// DefaultTesters authenticate with the real services
func DefaultTesters() Testers {
	return Testers{
		Feishu: func(ctx context.Context, cfg models.FeishuConfig) error {
			return bitable.New(cfg).Authenticate(ctx)
		},
		Notion: func(ctx context.Context, cfg models.NotionConfig) error {
			return notion.New(cfg).Authenticate(ctx)
		},
		GitHub: func(ctx context.Context, cfg models.GitHubConfig) error {
			return imagehost.New(cfg).Test(ctx)
		},
	}
}

// Settings returns the saved credentials. Secrets keep only their last four characters.
func (l *Local) Settings(ctx context.Context) (Settings, error) {
	fc, err := l.store.FeishuConfig(ctx)
	if err != nil {
		return Settings{}, err
	}
	nc, err := l.store.NotionConfig(ctx)
	if err != nil {
		return Settings{}, err
	}
	gc, err := l.store.GitHubConfig(ctx)
	if err != nil {
		return Settings{}, err
	}
	fc.AppSecret = Mask(fc.AppSecret)
	nc.Token = Mask(nc.Token)
	gc.Token = Mask(gc.Token)
	return Settings{Feishu: fc, Notion: nc, GitHub: gc}, nil
}

// SaveSettings applies patch, keyed by the stored JSON field names, over the saved section.
// The result must validate, and pass the section's tester when test is set, before it is written.
func (l *Local) SaveSettings(ctx context.Context, section Section, patch map[string]string, test bool) error {
	switch section {
	case SectionFeishu:
		cfg, err := l.store.FeishuConfig(ctx)
		if err != nil {
			return err
		}
		return saveSection(ctx, l.store, store.KeyFeishuConfig, cfg, patch, test, l.testers.Feishu)
	case SectionNotion:
		cfg, err := l.store.NotionConfig(ctx)
		if err != nil {
			return err
		}
		return saveSection(ctx, l.store, store.KeyNotionConfig, cfg, patch, test, l.testers.Notion)
	case SectionGitHub:
		cfg, err := l.store.GitHubConfig(ctx)
		if err != nil {
			return err
		}
		return saveSection(ctx, l.store, store.KeyGitHubConfig, cfg, patch, test, l.testers.GitHub)
	default:
		return &validation.Error{Fields: []string{fmt.Sprintf("section %q is invalid", section)}}
	}
}

func saveSection[T any](ctx context.Context, st *store.Store, key string, cfg T, patch map[string]string,
	test bool, tester func(context.Context, T) error) error {
	cfg, err := applyPatch(cfg, patch)
	if err != nil {
		return err
	}
	if err := validation.Struct(cfg); err != nil {
		return err
	}
	if test && tester != nil {
		if err := tester(ctx, cfg); err != nil {
			return err
		}
	}
	if err := st.Set(ctx, map[string]any{key: cfg}); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// applyPatch overwrites the JSON fields of cfg named in patch. Unknown names are rejected.
func applyPatch[T any](cfg T, patch map[string]string) (T, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return cfg, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return cfg, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return cfg, err
	}

	var out T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return cfg, &validation.Error{Fields: []string{err.Error()}}
	}
	return out, nil
}

// Mask hides all but the last four characters of a secret
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
