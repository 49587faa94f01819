package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/remote"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/syncer"
	"github.com/takak2166/promptsync/internal/workspace"
)

// fakeWorkspace runs catalog operations against a real store and scripts the sync cycle
type fakeWorkspace struct {
	*workspace.Local
	pushErr error
	pullErr error
	actions []string
}

func (f *fakeWorkspace) Push(context.Context) error { return f.pushErr }
func (f *fakeWorkspace) Pull(context.Context) error { return f.pullErr }

func (f *fakeWorkspace) Handle(_ context.Context, action string) syncer.Result {
	f.actions = append(f.actions, action)
	if action != syncer.ActionPush {
		return syncer.Result{Error: "unknown action"}
	}
	return syncer.Result{Success: true}
}

func noRemote(context.Context) (remote.Table, error) {
	return nil, errors.New("remote not configured")
}

func newTestServer(t *testing.T, fake *fakeWorkspace) (*Server, *store.Store) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	fake.Local = workspace.New(st, noRemote, workspace.WithTesters(workspace.Testers{}))
	return NewServer(st, fake), st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t, &fakeWorkspace{})
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestSyncEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		fake       *fakeWorkspace
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "push succeeds",
			fake:       &fakeWorkspace{},
			path:       "/api/v1/sync/push",
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true}`,
		},
		{
			name:       "push while another sync runs",
			fake:       &fakeWorkspace{pushErr: syncer.ErrSyncInProgress},
			path:       "/api/v1/sync/push",
			wantStatus: http.StatusConflict,
			wantBody:   `{"success":false,"error":"a sync is already in progress"}`,
		},
		{
			name:       "pull of empty remote",
			fake:       &fakeWorkspace{pullErr: &syncer.NoDataError{Op: "pull", Message: "remote table has no libraries"}},
			path:       "/api/v1/sync/pull",
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"success":false,"error":"pull: remote table has no libraries"}`,
		},
		{
			name:       "remote failure",
			fake:       &fakeWorkspace{pullErr: errors.New("read page 2: list records failed")},
			path:       "/api/v1/sync/pull",
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"success":false,"error":"read page 2: list records failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.fake)
			rec := do(t, s, http.MethodPost, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestCommands(t *testing.T) {
	fake := &fakeWorkspace{}
	s, _ := newTestServer(t, fake)

	rec := do(t, s, http.MethodPost, "/api/v1/commands", `{"action":"syncPush"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/commands", `{"action":"nope"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"unknown action"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/commands", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []string{"syncPush", "nope"}, fake.actions)
}

func TestStatusAndLibraries(t *testing.T) {
	s, st := newTestServer(t, &fakeWorkspace{})
	ctx := context.Background()

	rec := do(t, s, http.MethodGet, "/api/v1/status", "")
	assert.JSONEq(t, `{"lastSyncTime":0}`, rec.Body.String())

	require.NoError(t, st.RecordSyncSuccess(ctx, time.UnixMilli(1700000000000)))
	require.NoError(t, st.ReplaceLibraries(ctx, []models.Library{{ID: "1", Name: "Lib", Categories: []models.Category{}, Prompts: []models.Prompt{}}}, "1"))

	rec = do(t, s, http.MethodGet, "/api/v1/status", "")
	assert.JSONEq(t, `{"lastSyncTime":1700000000000,"lastSyncStatus":"success"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/libraries", "")
	assert.JSONEq(t, `{"libraries":[{"id":"1","name":"Lib","categories":[],"prompts":[]}],"currentLibraryId":"1"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/selection", "")
	assert.JSONEq(t, `{"selectedPrompts":[],"temporaryTags":[],"text":""}`, rec.Body.String())
}

func TestCatalogRoutes(t *testing.T) {
	s, st := newTestServer(t, &fakeWorkspace{})
	ctx := context.Background()
	require.NoError(t, st.ReplaceLibraries(ctx, []models.Library{{ID: "1", Name: "Lib", Categories: []models.Category{}, Prompts: []models.Prompt{}}}, "1"))

	rec := do(t, s, http.MethodPost, "/api/v1/categories", `{"name":"Style"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))

	rec = do(t, s, http.MethodPost, "/api/v1/prompts", `{"text":"anime style","categoryId":"`+cat.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p models.Prompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = do(t, s, http.MethodPost, "/api/v1/selection/toggle", `{"promptId":"`+p.ID+`"}`)
	assert.JSONEq(t, `{"selected":true}`, rec.Body.String())
	rec = do(t, s, http.MethodPost, "/api/v1/selection/tags", `{"tag":"8k"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/selection", "")
	assert.JSONEq(t, `{"selectedPrompts":["`+p.ID+`"],"temporaryTags":["8k"],"text":"anime style, 8k"}`, rec.Body.String())

	rec = do(t, s, http.MethodDelete, "/api/v1/categories/"+cat.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPatch, "/api/v1/libraries/missing", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/v1/libraries/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPatch, "/api/v1/settings/github", `{"owner":"octo","repo":"images"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "token is required")

	rec = do(t, s, http.MethodPatch, "/api/v1/settings/nope", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, &fakeWorkspace{})

	for origin, allowed := range map[string]bool{
		"chrome-extension://abcdefghijklmnop": true,
		"http://localhost:3000":               true,
		"https://evil.example":                false,
	} {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/sync/push", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if allowed {
			assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	}
}

func TestEvents(t *testing.T) {
	s, st := newTestServer(t, &fakeWorkspace{})
	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The watch registers asynchronously; keep writing until a change arrives
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = st.Set(context.Background(), map[string]any{
					store.KeyFeishuConfig:   models.FeishuConfig{AppSecret: "hidden"},
					store.KeyLastSyncStatus: models.SyncFailed,
				})
			}
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: change" && scanner.Scan() {
			data = strings.TrimPrefix(scanner.Text(), "data: ")
			break
		}
	}
	cancel()
	writer.Wait()

	require.NotEmpty(t, data)
	var change store.Change
	require.NoError(t, json.Unmarshal([]byte(data), &change))
	assert.Equal(t, store.KeyLastSyncStatus, change.Key)
	assert.JSONEq(t, `"failed"`, string(change.Value))
	assert.NotContains(t, data, "hidden")
}
