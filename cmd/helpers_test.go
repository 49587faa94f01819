package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/takak2166/promptsync/internal/api"
	"github.com/takak2166/promptsync/internal/remote"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/workspace"
)

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"Portraits":     "Portraits",
		" a/b:c ":       "a_b_c",
		"   ":           "library",
		"Style? <Yes>|": "Style_ _Yes__",
	}
	for in, want := range tests {
		if got := fileName(in); got != want {
			t.Errorf("fileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOverlay(t *testing.T) {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var flagVal string
	f.StringVar(&flagVal, "table-id", "", "")

	patch := map[string]string{}
	overlay(f, patch, "tableId", "table-id", "", flagVal)
	if _, ok := patch["tableId"]; ok {
		t.Errorf("unset config and flag added %q", patch["tableId"])
	}

	overlay(f, patch, "tableId", "table-id", "from-config", flagVal)
	if patch["tableId"] != "from-config" {
		t.Errorf("config value not applied, got %q", patch["tableId"])
	}

	if err := f.Parse([]string{"--table-id", "from-flag"}); err != nil {
		t.Fatal(err)
	}
	overlay(f, patch, "tableId", "table-id", "from-config", flagVal)
	if patch["tableId"] != "from-flag" {
		t.Errorf("flag value not applied, got %q", patch["tableId"])
	}
}

func TestDaemonURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:8787": "http://127.0.0.1:8787",
		":8787":          "http://127.0.0.1:8787",
		"0.0.0.0:9000":   "http://127.0.0.1:9000",
		"[::]:9000":      "http://127.0.0.1:9000",
		"localhost:8787": "http://localhost:8787",
		"[::1]:8787":     "http://[::1]:8787",
	}
	for in, want := range tests {
		if got := daemonURL(in); got != want {
			t.Errorf("daemonURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetup_RoutesThroughRunningDaemon(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	offline := func(context.Context) (remote.Table, error) { return nil, errors.New("offline") }
	daemon := workspace.New(st, offline)
	if _, err := daemon.EnsureDefault(ctx); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(api.NewServer(st, daemon))
	defer srv.Close()

	t.Setenv("PROMPTSYNC_LISTEN_ADDR", strings.TrimPrefix(srv.URL, "http://"))
	t.Setenv("PROMPTSYNC_STORE_PATH", t.TempDir())

	a, err := setup(ctx, false)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	if a.store != nil || a.local != nil {
		t.Fatal("setup opened the store while a daemon was running")
	}
	if _, ok := a.ws.(*api.Client); !ok {
		t.Fatalf("ws = %T, want *api.Client", a.ws)
	}
	if _, err := a.ws.AddLibrary(ctx, "Portraits"); err != nil {
		t.Fatalf("AddLibrary() error = %v", err)
	}
	libs, _, err := st.Libraries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 2 || libs[1].Name != "Portraits" {
		t.Errorf("daemon store libraries = %+v", libs)
	}

	// serve always owns the store
	local, err := setup(ctx, true)
	if err != nil {
		t.Fatalf("setup(local) error = %v", err)
	}
	if local.local == nil || local.ws != workspace.Workspace(local.local) {
		t.Error("local setup did not open the store")
	}
	if err := local.store.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSetup_OpensStoreWithoutDaemon(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	t.Setenv("PROMPTSYNC_LISTEN_ADDR", addr)
	t.Setenv("PROMPTSYNC_STORE_PATH", t.TempDir())

	a, err := setup(context.Background(), false)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer a.store.Close()
	if a.local == nil {
		t.Fatalf("ws = %T, want the local workspace", a.ws)
	}
	libs, current, err := a.ws.Libraries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 1 || current != libs[0].ID {
		t.Errorf("default library not seeded: %+v current %q", libs, current)
	}
}
