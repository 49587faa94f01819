// Package notion implements the remote table contract on a Notion database, one page per row.
package notion

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/remote"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/validation"
)

const (
	// TitleColumn is the title property every Notion database carries
	TitleColumn = "Name"

	// Notion caps query pages at 100 results
	pageSize = 100

	// Rich text content is limited to 2000 characters per segment
	maxTextLen = 2000

	// Notion averages three requests per second per integration
	defaultRPS   = 3.0
	defaultBurst = 3
)

// Client wraps the Notion API client
type Client struct {
	client        NotionClient
	limiter       *rate.Limiter
	cfg           models.NotionConfig
	authenticated bool
}

// New creates a client for cfg. No network call is made until Authenticate.
func New(cfg models.NotionConfig) *Client {
	notionClient := notionapi.NewClient(notionapi.Token(cfg.Token))
	return newWithClient(cfg, newNotionClientAdapter(notionClient))
}

func newWithClient(cfg models.NotionConfig, nc NotionClient) *Client {
	return &Client{
		client:  nc,
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		cfg:     cfg,
	}
}

// Connector builds a client from the settings saved in the local store
func Connector(st *store.Store) func(context.Context) (remote.Table, error) {
	return func(ctx context.Context) (remote.Table, error) {
		cfg, err := st.NotionConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load notion config: %w", err)
		}
		return New(cfg), nil
	}
}

// Authenticate checks the integration token by fetching its bot user
func (c *Client) Authenticate(ctx context.Context) error {
	if err := validation.Struct(c.cfg); err != nil {
		return &remote.AuthError{Message: "notion config incomplete", Err: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &remote.AuthError{Message: "rate limit wait", Err: err}
	}

	me, err := c.client.User().Me(ctx)
	if err != nil {
		return &remote.AuthError{Message: errorMessage(err), Err: err}
	}
	c.authenticated = true

	logger.Debug("Authenticated with Notion", map[string]interface{}{
		"bot": me.Name,
	})
	return nil
}

// Direct is the configured database id
func (c *Client) Direct() remote.Address {
	return remote.Address{TableID: c.cfg.DatabaseID}
}

// Resolve finds the first inline database on the configured parent page
func (c *Client) Resolve(ctx context.Context) (remote.Address, error) {
	if c.cfg.ParentPageID == "" {
		return c.Direct(), nil
	}
	if !c.authenticated {
		return remote.Address{}, &remote.AuthError{Message: "not authenticated"}
	}

	var cursor notionapi.Cursor
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return remote.Address{}, &remote.ResolutionError{Node: c.cfg.ParentPageID, Message: "rate limit wait", Err: err}
		}
		resp, err := c.client.Block().GetChildren(ctx, notionapi.BlockID(c.cfg.ParentPageID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return remote.Address{}, &remote.ResolutionError{Node: c.cfg.ParentPageID, Message: errorMessage(err), Err: err}
		}

		for _, block := range resp.Results {
			if block.GetType() == notionapi.BlockTypeChildDatabase {
				addr := remote.Address{TableID: string(block.GetID())}
				logger.Debug("Resolved parent page to database", map[string]interface{}{
					"page":     c.cfg.ParentPageID,
					"database": addr.TableID,
				})
				return addr, nil
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	return remote.Address{}, &remote.ResolutionError{Node: c.cfg.ParentPageID, Message: "page has no inline database"}
}

// List queries the database page by page
func (c *Client) List(ctx context.Context, addr remote.Address) iter.Seq2[models.Row, error] {
	return func(yield func(models.Row, error) bool) {
		if !c.authenticated {
			yield(models.Row{}, &remote.AuthError{Message: "not authenticated"})
			return
		}

		var cursor notionapi.Cursor
		for page := 0; ; page++ {
			if err := c.limiter.Wait(ctx); err != nil {
				yield(models.Row{}, &remote.ReadError{Page: page, Message: "rate limit wait", Err: err})
				return
			}
			resp, err := c.client.Database().Query(ctx, notionapi.DatabaseID(addr.TableID), &notionapi.DatabaseQueryRequest{
				StartCursor: cursor,
				PageSize:    pageSize,
			})
			if err != nil {
				yield(models.Row{}, &remote.ReadError{Page: page, Message: errorMessage(err), Err: err})
				return
			}

			for _, p := range resp.Results {
				if p.Archived {
					continue
				}
				if !yield(decodePage(p), nil) {
					return
				}
			}

			if !resp.HasMore {
				return
			}
			if resp.NextCursor == "" || resp.NextCursor == cursor {
				yield(models.Row{}, &remote.ReadError{Page: page, Message: "has_more set but cursor did not advance"})
				return
			}
			cursor = resp.NextCursor
		}
	}
}

// DeleteAll archives every page in the database
func (c *Client) DeleteAll(ctx context.Context, addr remote.Address) error {
	var ids []string
	for row, err := range c.List(ctx, addr) {
		if err != nil {
			return err
		}
		ids = append(ids, row.RecordID)
	}
	if len(ids) == 0 {
		logger.Debug("Remote table already empty", map[string]interface{}{"table": addr.String()})
		return nil
	}

	batches := remote.Batches(ids, remote.BatchSize)
	for i, batch := range batches {
		for _, id := range batch {
			if err := c.archive(ctx, id); err != nil {
				return &remote.WriteError{Op: "delete", Batch: i, Total: len(batches), Message: errorMessage(err), Err: err}
			}
		}
	}

	logger.Info("Archived remote pages", map[string]interface{}{
		"table": addr.String(),
		"pages": len(ids),
	})
	return nil
}

// Insert creates one page per row. Notion has no bulk create, so a batch is BatchSize
// sequential creates and stops at the first failure.
func (c *Client) Insert(ctx context.Context, addr remote.Address, rows []models.Row) error {
	if !c.authenticated {
		return &remote.AuthError{Message: "not authenticated"}
	}

	batches := remote.Batches(rows, remote.BatchSize)
	for i, batch := range batches {
		for _, row := range batch {
			if err := c.create(ctx, addr, row); err != nil {
				return &remote.WriteError{Op: "insert", Batch: i, Total: len(batches), Message: errorMessage(err), Err: err}
			}
		}

		logger.Debug("Inserted batch", map[string]interface{}{
			"table": addr.String(),
			"batch": i + 1,
			"total": len(batches),
			"rows":  len(batch),
		})
	}
	return nil
}

func (c *Client) create(ctx context.Context, addr remote.Address, row models.Row) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.client.Page().Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(addr.TableID),
		},
		Properties: encodeRow(row),
	})
	return err
}

func (c *Client) archive(ctx context.Context, id string) error {
	if !c.authenticated {
		return &remote.AuthError{Message: "not authenticated"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.client.Page().Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Archived:   true,
		Properties: notionapi.Properties{},
	})
	return err
}

func errorMessage(err error) string {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
