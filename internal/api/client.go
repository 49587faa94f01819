package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/takak2166/promptsync/internal/catalog"
	"github.com/takak2166/promptsync/internal/imagehost"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/syncer"
	"github.com/takak2166/promptsync/internal/workspace"
)

// pingTimeout bounds the health check. Other calls are bounded by the caller's ctx.
const pingTimeout = 500 * time.Millisecond

// Error is a non-2xx reply from the daemon
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Client runs workspace operations through a daemon's loopback API
type Client struct {
	http    *http.Client
	baseURL string
}

var _ workspace.Workspace = (*Client)(nil)

// NewClient creates a client for the daemon at baseURL, e.g. http://127.0.0.1:7345
func NewClient(baseURL string) *Client {
	return &Client{
		http:    &http.Client{},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Ping reports whether a healthy daemon answers at the base URL
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.do(ctx, http.MethodGet, "/health", nil, nil) == nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Push(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/sync/push", nil, nil)
}

func (c *Client) Pull(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/sync/pull", nil, nil)
}

func (c *Client) Handle(ctx context.Context, action string) syncer.Result {
	var res syncer.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/commands", commandRequest{Action: action}, &res); err != nil {
		return syncer.Result{Error: err.Error()}
	}
	return res
}

func (c *Client) SyncStatus(ctx context.Context) (models.SyncStatus, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &resp); err != nil {
		return models.SyncStatus{}, err
	}
	st := models.SyncStatus{LastSyncStatus: resp.LastSyncStatus, LastSyncError: resp.LastSyncError}
	if resp.LastSyncTime > 0 {
		st.LastSyncTime = time.UnixMilli(resp.LastSyncTime)
	}
	return st, nil
}

func (c *Client) Libraries(ctx context.Context) ([]models.Library, string, error) {
	var resp librariesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/libraries", nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Libraries, resp.CurrentLibraryID, nil
}

func (c *Client) Current(ctx context.Context) (models.Library, error) {
	var lib models.Library
	err := c.do(ctx, http.MethodGet, "/api/v1/libraries/current", nil, &lib)
	return lib, err
}

func (c *Client) AddLibrary(ctx context.Context, name string) (models.Library, error) {
	var lib models.Library
	err := c.do(ctx, http.MethodPost, "/api/v1/libraries", nameRequest{Name: name}, &lib)
	return lib, err
}

func (c *Client) RenameLibrary(ctx context.Context, libraryID, name string) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/libraries/"+url.PathEscape(libraryID), nameRequest{Name: name}, nil)
}

func (c *Client) DeleteLibrary(ctx context.Context, libraryID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/libraries/"+url.PathEscape(libraryID), nil, nil)
}

func (c *Client) SwitchLibrary(ctx context.Context, libraryID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/libraries/"+url.PathEscape(libraryID)+"/switch", nil, nil)
}

func (c *Client) ImportLibraries(ctx context.Context, libs []models.Library, currentID string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/libraries", importRequest{Libraries: libs, CurrentLibraryID: currentID}, nil)
}

func (c *Client) AddCategory(ctx context.Context, name string) (models.Category, error) {
	var cat models.Category
	err := c.do(ctx, http.MethodPost, "/api/v1/categories", nameRequest{Name: name}, &cat)
	return cat, err
}

func (c *Client) RenameCategory(ctx context.Context, categoryID, name string) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/categories/"+url.PathEscape(categoryID), nameRequest{Name: name}, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, categoryID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/categories/"+url.PathEscape(categoryID), nil, nil)
}

func (c *Client) AddPrompt(ctx context.Context, in catalog.PromptInput) (models.Prompt, error) {
	var p models.Prompt
	err := c.do(ctx, http.MethodPost, "/api/v1/prompts", in, &p)
	return p, err
}

func (c *Client) UpdatePrompt(ctx context.Context, promptID string, in catalog.PromptInput) (models.Prompt, error) {
	var p models.Prompt
	err := c.do(ctx, http.MethodPut, "/api/v1/prompts/"+url.PathEscape(promptID), in, &p)
	return p, err
}

func (c *Client) DeletePrompts(ctx context.Context, promptIDs ...string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/prompts/delete", deletePromptsRequest{IDs: promptIDs}, nil)
}

func (c *Client) AttachImage(ctx context.Context, promptID, filename string, data []byte) (string, error) {
	var resp imageResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/prompts/"+url.PathEscape(promptID)+"/image", imageRequest{Filename: filename, Data: data}, &resp)
	return resp.URL, err
}

func (c *Client) selection(ctx context.Context) (selectionResponse, error) {
	var resp selectionResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/selection", nil, &resp)
	return resp, err
}

func (c *Client) Selection(ctx context.Context) (store.Selection, error) {
	resp, err := c.selection(ctx)
	if err != nil {
		return store.Selection{}, err
	}
	return store.Selection{PromptIDs: resp.PromptIDs, TemporaryTags: resp.TemporaryTags}, nil
}

func (c *Client) SelectionText(ctx context.Context) (string, error) {
	resp, err := c.selection(ctx)
	return resp.Text, err
}

func (c *Client) ToggleSelection(ctx context.Context, promptID string) (bool, error) {
	var resp toggleResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/selection/toggle", toggleRequest{PromptID: promptID}, &resp)
	return resp.Selected, err
}

func (c *Client) ClearSelection(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/selection", nil, nil)
}

func (c *Client) AddTag(ctx context.Context, tag string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/selection/tags", tagRequest{Tag: tag}, nil)
}

func (c *Client) RemoveTag(ctx context.Context, tag string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/selection/tags/remove", tagRequest{Tag: tag}, nil)
}

func (c *Client) ListImages(ctx context.Context) ([]imagehost.Image, error) {
	var images []imagehost.Image
	err := c.do(ctx, http.MethodGet, "/api/v1/images", nil, &images)
	return images, err
}

func (c *Client) TestImageHost(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/images/test", nil, nil)
}

func (c *Client) Settings(ctx context.Context) (workspace.Settings, error) {
	var s workspace.Settings
	err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, &s)
	return s, err
}

func (c *Client) SaveSettings(ctx context.Context, section workspace.Section, patch map[string]string, test bool) error {
	p := "/api/v1/settings/" + url.PathEscape(string(section))
	if test {
		p += "?test=true"
	}
	if patch == nil {
		patch = map[string]string{}
	}
	return c.do(ctx, http.MethodPatch, p, patch, nil)
}
