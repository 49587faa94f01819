package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/takak2166/promptsync/internal/api"
	"github.com/takak2166/promptsync/internal/bitable"
	"github.com/takak2166/promptsync/internal/config"
	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/notion"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/syncer"
	"github.com/takak2166/promptsync/internal/workspace"
)

// localOnly marks commands that must own the store rather than talk to a running daemon
const localOnly = "local"

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// app is the process wiring shared by every command. ws goes through the daemon when one is
// running; local and store are set only when this process opened the store itself.
type app struct {
	cfg   *config.Config
	ws    workspace.Workspace
	local *workspace.Local
	store *store.Store
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "promptsync",
	Short: "Manage prompt libraries and sync them with a remote table",
	Long: `promptsync keeps a local library of image-generation prompts and mirrors it to
a Feishu Bitable table or a Notion database.

Push replaces the remote table with the local libraries. Pull replaces the local
libraries with the ones rebuilt from the remote table.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd.Annotations[localOnly] == "true")
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./promptsync.yaml when present)",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", "", "dotenv file to load (default: ./.env when present)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "debug, info, warn or error (default: log_level from config)",
	)
}

func loadEnv() error {
	if envFile != "" {
		return godotenv.Load(envFile)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// daemonURL turns a listen address into the base URL a client on this host dials
func daemonURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func setup(ctx context.Context, local bool) (*app, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetOutput(os.Stderr)

	// A running daemon holds the store lock; route through its API instead
	if !local {
		client := api.NewClient(daemonURL(cfg.ListenAddr))
		if client.Ping(ctx) {
			logger.Debug("Using running daemon", map[string]interface{}{"addr": cfg.ListenAddr})
			return &app{cfg: cfg, ws: client}, nil
		}
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var connect syncer.Connector
	switch cfg.Backend {
	case config.BackendNotion:
		connect = notion.Connector(st)
	default:
		connect = bitable.Connector(st)
	}

	ws := workspace.New(st, connect)
	if _, err := ws.EnsureDefault(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("seed default library: %w", err)
	}

	logger.Debug("Initialized", map[string]interface{}{
		"store":   cfg.StorePath,
		"backend": cfg.Backend,
	})

	return &app{cfg: cfg, ws: ws, local: ws, store: st}, nil
}

func closeApp() {
	if current == nil || current.store == nil {
		current = nil
		return
	}
	if err := current.store.Close(); err != nil {
		logger.Error("Failed to close store", err)
	}
	current = nil
}
