// Package imagehost stores prompt preview images in a GitHub repository through the contents API.
package imagehost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/validation"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultDir     = "prompts"
	defaultTimeout = 30 * time.Second

	uploadAttempts = 3
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

// APIError is a non-2xx reply from the contents API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github http %d: %s", e.Status, e.Message)
}

// Image is one file in the image directory
type Image struct {
	Name string `json:"name"`
	URL  string `json:"download_url"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Client uploads to and deletes from one repository
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
	cfg     models.GitHubConfig
	delay   time.Duration
	now     func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API host
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetryDelay sets the pause between upload attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// New creates a client for cfg
func New(cfg models.GitHubConfig, opts ...Option) *Client {
	if cfg.Path == "" {
		cfg.Path = defaultDir
	}
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		baseURL: defaultBaseURL,
		cfg:     cfg,
		delay:   time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromStore builds a client from the settings saved in the local store
func FromStore(st *store.Store, opts ...Option) func(context.Context) (*Client, error) {
	return func(ctx context.Context) (*Client, error) {
		cfg, err := st.GitHubConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load github config: %w", err)
		}
		if err := validation.Struct(cfg); err != nil {
			return nil, fmt.Errorf("github config incomplete: %w", err)
		}
		return New(cfg, opts...), nil
	}
}

// Test checks that the token can read the repository
func (c *Client) Test(ctx context.Context) error {
	if err := validation.Struct(c.cfg); err != nil {
		return fmt.Errorf("github config incomplete: %w", err)
	}
	return c.do(ctx, http.MethodGet, c.repoURL(), nil, nil)
}

// Put creates a file at p, retrying transient failures
func (c *Client) Put(ctx context.Context, p string, content []byte, message string) (Image, error) {
	body := map[string]string{
		"message":  message,
		"content":  base64.StdEncoding.EncodeToString(content),
		"encoding": "base64",
	}

	var resp struct {
		Content Image `json:"content"`
	}
	err := retry.Do(
		func() error {
			return c.do(ctx, http.MethodPut, c.contentsURL(p), body, &resp)
		},
		retry.Context(ctx),
		retry.Attempts(uploadAttempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Retrying image upload", err, map[string]interface{}{
				"path":    p,
				"attempt": n + 1,
			})
		}),
	)
	if err != nil {
		return Image{}, fmt.Errorf("upload %s: %w", p, err)
	}

	logger.Info("Uploaded image", map[string]interface{}{
		"path": resp.Content.Path,
		"size": len(content),
	})
	return resp.Content, nil
}

// Delete removes the file at p, fetching its sha first
func (c *Client) Delete(ctx context.Context, p string) error {
	var info Image
	if err := c.do(ctx, http.MethodGet, c.contentsURL(p), nil, &info); err != nil {
		return fmt.Errorf("stat %s: %w", p, err)
	}

	body := map[string]string{
		"message": "Delete image: " + path.Base(p),
		"sha":     info.SHA,
	}
	if err := c.do(ctx, http.MethodDelete, c.contentsURL(p), body, nil); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}

	logger.Info("Deleted image", map[string]interface{}{"path": p})
	return nil
}

// List returns the image files in the configured directory
func (c *Client) List(ctx context.Context) ([]Image, error) {
	var entries []Image
	if err := c.do(ctx, http.MethodGet, c.contentsURL(c.cfg.Path), nil, &entries); err != nil {
		return nil, fmt.Errorf("list %s: %w", c.cfg.Path, err)
	}

	images := make([]Image, 0, len(entries))
	for _, e := range entries {
		if e.Type == "file" && IsImage(e.Name) {
			images = append(images, e)
		}
	}
	return images, nil
}

// UploadPromptImage stores data as the preview of promptID and returns the public URL
func (c *Client) UploadPromptImage(ctx context.Context, promptID, filename string, data []byte) (string, error) {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" || !IsImage(filename) {
		return "", fmt.Errorf("%q is not an image file", filename)
	}

	name := fmt.Sprintf("prompt_%s_%d.%s", promptID, c.now().UnixMilli(), strings.ToLower(ext))
	img, err := c.Put(ctx, path.Join(c.cfg.Path, name), data, "Add image for prompt: "+promptID)
	if err != nil {
		return "", err
	}
	return img.URL, nil
}

// DeleteByURL removes the image a prompt points at. The file name is the last path segment;
// query strings such as private-repo tokens are ignored.
func (c *Client) DeleteByURL(ctx context.Context, imageURL string) error {
	u, err := url.Parse(imageURL)
	if err != nil {
		return fmt.Errorf("parse image url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return fmt.Errorf("no file name in %q", imageURL)
	}
	return c.Delete(ctx, path.Join(c.cfg.Path, name))
}

// IsImage reports whether name has an image extension
func IsImage(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// retryable keeps retrying server errors, rate limiting and network failures
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func (c *Client) repoURL() string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.cfg.Owner, c.cfg.Repo)
}

func (c *Client) contentsURL(p string) string {
	return c.repoURL() + "/contents/" + strings.TrimPrefix(p, "/")
}

func (c *Client) do(ctx context.Context, method, u string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
