package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/store"
)

const heartbeatInterval = 30 * time.Second

// watchedKeys excludes the credential settings so secrets never leave the process
var watchedKeys = []string{
	store.KeyLibraries,
	store.KeyCurrentLibraryID,
	store.KeySelectedPrompts,
	store.KeyTemporaryTags,
	store.KeyLastSyncTime,
	store.KeyLastSyncStatus,
	store.KeyLastSyncError,
}

// handleEvents streams store changes as server-sent events until the client goes away
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	changes := make(chan store.Change, 16)
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- s.store.Watch(ctx, func(c store.Change) error {
			select {
			case changes <- c:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}, watchedKeys...)
	}()

	if err := sendEvent(w, rc, "connected", map[string]string{"message": "watching store"}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case c := <-changes:
			if err := sendEvent(w, rc, "change", c); err != nil {
				logger.Debug("Event client disconnected during send")
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case err := <-watchDone:
			if err != nil {
				logger.Error("Store watch ended", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

func sendEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return rc.Flush()
}
