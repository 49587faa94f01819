package bitable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/remote"
)

var testConfig = models.FeishuConfig{
	AppID:     "cli_test",
	AppSecret: "secret",
	AppToken:  "bascnApp",
	TableID:   "tblTable",
}

// fakeFeishu is an in-memory Open API covering the endpoints the client uses
type fakeFeishu struct {
	mu       sync.Mutex
	records  []record
	nextID   int
	requests []string

	rejectAuth    bool
	failCreateAt  int // 1-based batch_create call that fails; 0 never
	createCalls   int
	createSizes   []int
	deleteSizes   []int
	wikiObjType   string
	failListAfter int // fail list requests after this many pages; 0 never
	listCalls     int
}

func (f *fakeFeishu) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if r.URL.Path != "/auth/v3/tenant_access_token/internal" && r.Header.Get("Authorization") != "Bearer t-token" {
		writeJSON(w, map[string]any{"code": 99991663, "msg": "invalid access token"})
		return
	}

	base := "/bitable/v1/apps/bascnApp/tables/tblTable/records"
	switch {
	case r.URL.Path == "/auth/v3/tenant_access_token/internal":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.rejectAuth || body["app_secret"] != "secret" {
			writeJSON(w, map[string]any{"code": 10014, "msg": "app secret invalid"})
			return
		}
		writeJSON(w, map[string]any{"code": 0, "msg": "ok", "tenant_access_token": "t-token", "expire": 7200})

	case r.URL.Path == "/wiki/v2/spaces/get_node":
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{
			"node": map[string]any{"obj_type": f.wikiObjType, "obj_token": "bascnApp", "title": "Prompts"},
		}})

	case r.URL.Path == base && r.Method == http.MethodGet:
		f.listCalls++
		if f.failListAfter > 0 && f.listCalls > f.failListAfter {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]any{"code": 1254607, "msg": "data not ready"})
			return
		}
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		start, _ := strconv.Atoi(r.URL.Query().Get("page_token"))
		end := min(start+size, len(f.records))
		data := map[string]any{
			"has_more": end < len(f.records),
			"total":    len(f.records),
			"items":    f.records[start:end],
		}
		if end < len(f.records) {
			data["page_token"] = strconv.Itoa(end)
		}
		writeJSON(w, map[string]any{"code": 0, "data": data})

	case r.URL.Path == base+"/batch_create":
		f.createCalls++
		var body struct {
			Records []record `json:"records"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.failCreateAt == f.createCalls {
			writeJSON(w, map[string]any{"code": 1254045, "msg": "FieldNameNotFound"})
			return
		}
		f.createSizes = append(f.createSizes, len(body.Records))
		for _, rec := range body.Records {
			f.nextID++
			rec.RecordID = fmt.Sprintf("rec%d", f.nextID)
			f.records = append(f.records, rec)
		}
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{}})

	case r.URL.Path == base+"/batch_delete":
		var body struct {
			Records []string `json:"records"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.deleteSizes = append(f.deleteSizes, len(body.Records))
		drop := make(map[string]bool)
		for _, id := range body.Records {
			drop[id] = true
		}
		kept := f.records[:0]
		for _, rec := range f.records {
			if !drop[rec.RecordID] {
				kept = append(kept, rec)
			}
		}
		f.records = kept
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{}})

	default:
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"code": 404, "msg": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeFeishu, cfg models.FeishuConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(cfg, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(1000, 1000))
}

func rowsN(n int) []models.Row {
	rows := make([]models.Row, n)
	for i := range rows {
		rows[i] = models.Row{
			Kind:        models.KindPrompt,
			LibraryID:   "1",
			LibraryName: "Lib",
			CategoryID:  "c1",
			PromptID:    "p" + strconv.Itoa(i),
			Text:        "prompt " + strconv.Itoa(i),
		}
	}
	return rows
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      models.FeishuConfig
		reject   bool
		wantErr  bool
		requests int
	}{
		{name: "valid credentials", cfg: testConfig, requests: 1},
		{name: "rejected credentials", cfg: testConfig, reject: true, wantErr: true, requests: 1},
		{name: "missing secret makes no request", cfg: models.FeishuConfig{AppID: "cli_test", AppToken: "b", TableID: "t"}, wantErr: true},
		{name: "empty config makes no request", cfg: models.FeishuConfig{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeFeishu{rejectAuth: tt.reject}
			c := newTestClient(t, fake, tt.cfg)

			err := c.Authenticate(context.Background())
			if tt.wantErr {
				var authErr *remote.AuthError
				require.True(t, errors.As(err, &authErr), "expected *remote.AuthError, got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, fake.requests, tt.requests)
		})
	}
}

func TestCallsRequireToken(t *testing.T) {
	fake := &fakeFeishu{}
	c := newTestClient(t, fake, testConfig)

	err := c.Insert(context.Background(), c.Direct(), rowsN(1))
	var writeErr *remote.WriteError
	require.True(t, errors.As(err, &writeErr))
	var authErr *remote.AuthError
	assert.True(t, errors.As(err, &authErr))

	_, err = remote.Collect(c.List(context.Background(), c.Direct()))
	assert.True(t, errors.As(err, &authErr))
	assert.Empty(t, fake.requests)
}

func TestInsertAndList_Paginates(t *testing.T) {
	fake := &fakeFeishu{}
	c := newTestClient(t, fake, testConfig)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))

	require.NoError(t, c.Insert(ctx, c.Direct(), rowsN(1201)))
	assert.Equal(t, []int{500, 500, 201}, fake.createSizes)

	rows, err := remote.Collect(c.List(ctx, c.Direct()))
	require.NoError(t, err)
	require.Len(t, rows, 1201)
	assert.Equal(t, 3, fake.listCalls)
	assert.Equal(t, "p0", rows[0].PromptID)
	assert.Equal(t, "prompt 1200", rows[1200].Text)
	assert.Equal(t, models.KindPrompt, rows[0].Kind)
	assert.NotEmpty(t, rows[0].RecordID)
}

func TestInsert_StopsAtFailedBatch(t *testing.T) {
	fake := &fakeFeishu{failCreateAt: 2}
	c := newTestClient(t, fake, testConfig)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))

	err := c.Insert(ctx, c.Direct(), rowsN(1201))

	var writeErr *remote.WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, 1, writeErr.Batch)
	assert.Equal(t, 3, writeErr.Total)
	assert.Equal(t, "FieldNameNotFound", writeErr.Message)
	assert.Equal(t, 2, fake.createCalls, "batch 3 must not be attempted")
	assert.Len(t, fake.records, 500, "batch 1 stays applied")
}

func TestList_ReadErrorMidStream(t *testing.T) {
	fake := &fakeFeishu{failListAfter: 1}
	c := newTestClient(t, fake, testConfig)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))
	require.NoError(t, c.Insert(ctx, c.Direct(), rowsN(600)))

	rows, err := remote.Collect(c.List(ctx, c.Direct()))
	assert.Nil(t, rows)
	var readErr *remote.ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, 1, readErr.Page)
}

func TestDeleteAll(t *testing.T) {
	fake := &fakeFeishu{}
	c := newTestClient(t, fake, testConfig)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))

	// Empty table is a no-op
	require.NoError(t, c.DeleteAll(ctx, c.Direct()))
	assert.Empty(t, fake.deleteSizes)

	require.NoError(t, c.Insert(ctx, c.Direct(), rowsN(700)))
	require.NoError(t, c.DeleteAll(ctx, c.Direct()))
	assert.Equal(t, []int{500, 200}, fake.deleteSizes)
	assert.Empty(t, fake.records)
}

func TestResolve(t *testing.T) {
	withWiki := testConfig
	withWiki.AppToken = ""
	withWiki.WikiNodeToken = "wikcnNode"

	t.Run("no indirection returns direct address", func(t *testing.T) {
		fake := &fakeFeishu{}
		c := newTestClient(t, fake, testConfig)
		addr, err := c.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, remote.Address{App: "bascnApp", TableID: "tblTable"}, addr)
		assert.Empty(t, fake.requests)
	})

	t.Run("wiki node of bitable type", func(t *testing.T) {
		fake := &fakeFeishu{wikiObjType: "bitable"}
		c := newTestClient(t, fake, withWiki)
		require.NoError(t, c.Authenticate(context.Background()))
		addr, err := c.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, remote.Address{App: "bascnApp", TableID: "tblTable"}, addr)
	})

	t.Run("wiki node of another type", func(t *testing.T) {
		fake := &fakeFeishu{wikiObjType: "docx"}
		c := newTestClient(t, fake, withWiki)
		require.NoError(t, c.Authenticate(context.Background()))
		_, err := c.Resolve(context.Background())
		var resErr *remote.ResolutionError
		require.True(t, errors.As(err, &resErr))
		assert.Contains(t, err.Error(), `"docx"`)
	})
}

func TestCellText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain string", in: `"anime style"`, want: "anime style"},
		{name: "rich text segments", in: `[{"text":"anime ","type":"text"},{"text":"style","type":"text"}]`, want: "anime style"},
		{name: "number", in: `1700000000000`, want: "1700000000000"},
		{name: "url cell", in: `{"link":"https://raw.example/a.png","text":"a.png"}`, want: "https://raw.example/a.png"},
		{name: "null", in: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v any
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.want, cellText(v))
		})
	}
}

func TestEncodeRow_OmitsEmptyColumns(t *testing.T) {
	rec := encodeRow(models.Row{Kind: models.KindLibrary, LibraryID: "1", LibraryName: "Lib"})
	assert.Equal(t, map[string]any{"Kind": "library", "LibraryID": "1", "LibraryName": "Lib"}, rec.Fields)
}
