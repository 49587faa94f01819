package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/takak2166/promptsync/internal/api"
	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/syncer"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 2 * time.Minute
)

var (
	serveAddr  string
	noSchedule bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP API and run the scheduled push",
	Long: `Start the loopback HTTP API used by browser surfaces.

Endpoints:
  - GET  /health
  - POST /api/v1/sync/push, /api/v1/sync/pull
  - POST /api/v1/commands  {"action": "syncPush" | "syncPull"}
  - GET  /api/v1/status
  - GET  /api/v1/events    server-sent store changes
  - /api/v1/libraries, /categories, /prompts, /selection, /images, /settings
                           catalog and settings operations

While the daemon runs it holds the store, and other promptsync commands on this
host go through its API.

Unless --no-schedule is given, a push runs after first_sync_delay and then
every sync_interval.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{localOnly: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		addr := current.cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(current.store, current.local),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}

		if !noSchedule {
			sched := syncer.NewScheduler(current.local, current.cfg.FirstSyncDelay, current.cfg.SyncInterval)
			go sched.Run(ctx)
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server", map[string]interface{}{"addr": addr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")

		// A running sync records its outcome before the store closes
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		if err := current.local.Drain(drainCtx); err != nil {
			logger.Warn("Sync still running at shutdown", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (default listen_addr from config)")
	serveCmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "disable the scheduled push")

	rootCmd.AddCommand(serveCmd)
}
