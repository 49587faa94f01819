// Package bitable implements the remote table contract on Feishu Bitable records.
package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/remote"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/validation"
)

const (
	defaultBaseURL = "https://open.feishu.cn/open-apis"

	// Bitable allows roughly 10 QPS per app; stay well under it
	defaultRPS   = 5.0
	defaultBurst = 5

	defaultTimeout = 30 * time.Second
)

// Client talks to one Bitable table
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
	cfg     models.FeishuConfig

	token     string
	expiresAt time.Time
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another Open API host
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit overrides the outbound request rate
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New creates a client for cfg. No network call is made until Authenticate.
func New(cfg models.FeishuConfig, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		baseURL: defaultBaseURL,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connector builds a client from the settings saved in the local store
func Connector(st *store.Store, opts ...Option) func(context.Context) (remote.Table, error) {
	return func(ctx context.Context) (remote.Table, error) {
		cfg, err := st.FeishuConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load feishu config: %w", err)
		}
		return New(cfg, opts...), nil
	}
}

// Authenticate exchanges the app id and secret for a tenant access token
func (c *Client) Authenticate(ctx context.Context) error {
	if err := validation.Struct(c.cfg); err != nil {
		return &remote.AuthError{Message: "feishu config incomplete", Err: err}
	}

	req := map[string]string{
		"app_id":     c.cfg.AppID,
		"app_secret": c.cfg.AppSecret,
	}
	var resp struct {
		Code   int    `json:"code"`
		Msg    string `json:"msg"`
		Token  string `json:"tenant_access_token"`
		Expire int    `json:"expire"`
	}
	if err := c.send(ctx, http.MethodPost, "/auth/v3/tenant_access_token/internal", nil, req, &resp); err != nil {
		return &remote.AuthError{Message: "token request failed", Err: err}
	}
	if resp.Code != 0 || resp.Token == "" {
		return &remote.AuthError{Message: fmt.Sprintf("code %d: %s", resp.Code, resp.Msg)}
	}

	c.token = resp.Token
	c.expiresAt = time.Now().Add(time.Duration(resp.Expire) * time.Second)

	logger.Debug("Obtained Feishu tenant access token", map[string]interface{}{
		"app_id":     c.cfg.AppID,
		"expires_in": resp.Expire,
	})
	return nil
}

// Direct is the configured app token and table id
func (c *Client) Direct() remote.Address {
	return remote.Address{App: c.cfg.AppToken, TableID: c.cfg.TableID}
}

// Resolve turns a wiki node token into the Bitable app token it wraps
func (c *Client) Resolve(ctx context.Context) (remote.Address, error) {
	if c.cfg.WikiNodeToken == "" {
		return c.Direct(), nil
	}

	var data struct {
		Node struct {
			ObjType  string `json:"obj_type"`
			ObjToken string `json:"obj_token"`
			Title    string `json:"title"`
		} `json:"node"`
	}
	q := url.Values{"token": {c.cfg.WikiNodeToken}}
	if err := c.call(ctx, http.MethodGet, "/wiki/v2/spaces/get_node", q, nil, &data); err != nil {
		return remote.Address{}, &remote.ResolutionError{Node: c.cfg.WikiNodeToken, Message: "get node failed", Err: err}
	}
	if data.Node.ObjType != "bitable" {
		return remote.Address{}, &remote.ResolutionError{
			Node:    c.cfg.WikiNodeToken,
			Message: fmt.Sprintf("node is %q, not a bitable", data.Node.ObjType),
		}
	}

	logger.Debug("Resolved wiki node to bitable", map[string]interface{}{
		"node":      c.cfg.WikiNodeToken,
		"app_token": data.Node.ObjToken,
		"title":     data.Node.Title,
	})
	return remote.Address{App: data.Node.ObjToken, TableID: c.cfg.TableID}, nil
}

// apiError is a non-zero Open API code or an HTTP failure without a readable envelope
type apiError struct {
	Status int
	Code   int
	Msg    string
}

func (e *apiError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("feishu code %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("feishu http %d: %s", e.Status, e.Msg)
}

// call performs an authenticated request and decodes the envelope's data into out
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.token == "" {
		return &remote.AuthError{Message: "not authenticated"}
	}
	if !c.expiresAt.IsZero() && time.Now().After(c.expiresAt) {
		return &remote.AuthError{Message: "tenant access token expired"}
	}

	var env struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := c.send(ctx, method, path, query, body, &env); err != nil {
		return err
	}
	if env.Code != 0 {
		return &apiError{Status: http.StatusOK, Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// send executes one rate-limited HTTP request and decodes the JSON body into out
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
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
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.Debug("feishu request", map[string]interface{}{
		"method": method,
		"path":   path,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Error responses still carry the {code, msg} envelope; prefer it over the status line
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 400 {
			return &apiError{Status: resp.StatusCode, Msg: string(data)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var env struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.Unmarshal(data, &env)
		return &apiError{Status: resp.StatusCode, Code: env.Code, Msg: env.Msg}
	}
	return nil
}
