package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/workspace"
)

var (
	feishuFlags models.FeishuConfig
	notionFlags models.NotionConfig
	githubFlags models.GitHubConfig
	testAfter   bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or save remote credentials kept in the local store",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print saved settings with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := current.ws.Settings(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"backend": current.cfg.Backend,
			"feishu":  s.Feishu,
			"notion":  s.Notion,
			"github":  s.GitHub,
		})
	},
}

var settingsFeishuCmd = &cobra.Command{
	Use:   "feishu",
	Short: "Save Feishu Bitable credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := current.cfg.Feishu.Model()
		f := cmd.Flags()
		patch := map[string]string{}
		overlay(f, patch, "appId", "app-id", seed.AppID, feishuFlags.AppID)
		overlay(f, patch, "appSecret", "app-secret", seed.AppSecret, feishuFlags.AppSecret)
		overlay(f, patch, "appToken", "app-token", seed.AppToken, feishuFlags.AppToken)
		overlay(f, patch, "tableId", "table-id", seed.TableID, feishuFlags.TableID)
		overlay(f, patch, "wikiNodeToken", "wiki-node-token", seed.WikiNodeToken, feishuFlags.WikiNodeToken)
		return save(cmd, workspace.SectionFeishu, patch)
	},
}

var settingsNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Save Notion credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := current.cfg.Notion.Model()
		f := cmd.Flags()
		patch := map[string]string{}
		overlay(f, patch, "token", "token", seed.Token, notionFlags.Token)
		overlay(f, patch, "databaseId", "database-id", seed.DatabaseID, notionFlags.DatabaseID)
		overlay(f, patch, "parentPageId", "parent-page-id", seed.ParentPageID, notionFlags.ParentPageID)
		return save(cmd, workspace.SectionNotion, patch)
	},
}

var settingsGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Save GitHub image host credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := current.cfg.GitHub.Model()
		f := cmd.Flags()
		patch := map[string]string{}
		overlay(f, patch, "owner", "owner", seed.Owner, githubFlags.Owner)
		overlay(f, patch, "repo", "repo", seed.Repo, githubFlags.Repo)
		overlay(f, patch, "token", "token", seed.Token, githubFlags.Token)
		overlay(f, patch, "path", "path", seed.Path, githubFlags.Path)
		return save(cmd, workspace.SectionGitHub, patch)
	},
}

// overlay records a value from the config file, then an explicitly set flag, under the stored
// field name. Fields left out of patch keep their saved value.
func overlay(f *pflag.FlagSet, patch map[string]string, field, flag, fromConfig, fromFlag string) {
	if fromConfig != "" {
		patch[field] = fromConfig
	}
	if f.Changed(flag) {
		patch[field] = fromFlag
	}
}

func save(cmd *cobra.Command, section workspace.Section, patch map[string]string) error {
	if err := current.ws.SaveSettings(cmd.Context(), section, patch, testAfter); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
	return nil
}

func init() {
	f := settingsFeishuCmd.Flags()
	f.StringVar(&feishuFlags.AppID, "app-id", "", "Feishu app id")
	f.StringVar(&feishuFlags.AppSecret, "app-secret", "", "Feishu app secret")
	f.StringVar(&feishuFlags.AppToken, "app-token", "", "Bitable app token")
	f.StringVar(&feishuFlags.TableID, "table-id", "", "Bitable table id")
	f.StringVar(&feishuFlags.WikiNodeToken, "wiki-node-token", "", "wiki node hosting the Bitable, resolved to the app token")

	f = settingsNotionCmd.Flags()
	f.StringVar(&notionFlags.Token, "token", "", "Notion integration token")
	f.StringVar(&notionFlags.DatabaseID, "database-id", "", "Notion database id")
	f.StringVar(&notionFlags.ParentPageID, "parent-page-id", "", "page holding an inline database")

	f = settingsGitHubCmd.Flags()
	f.StringVar(&githubFlags.Owner, "owner", "", "repository owner")
	f.StringVar(&githubFlags.Repo, "repo", "", "repository name")
	f.StringVar(&githubFlags.Token, "token", "", "personal access token")
	f.StringVar(&githubFlags.Path, "path", "", "directory for images (default prompts)")

	for _, c := range []*cobra.Command{settingsFeishuCmd, settingsNotionCmd, settingsGitHubCmd} {
		c.Flags().BoolVar(&testAfter, "test", false, "check the credentials before saving")
	}

	settingsCmd.AddCommand(settingsShowCmd, settingsFeishuCmd, settingsNotionCmd, settingsGitHubCmd)
	rootCmd.AddCommand(settingsCmd)
}
