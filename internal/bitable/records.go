package bitable

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/remote"
)

type record struct {
	RecordID string         `json:"record_id,omitempty"`
	Fields   map[string]any `json:"fields"`
}

type listData struct {
	HasMore   bool     `json:"has_more"`
	PageToken string   `json:"page_token"`
	Total     int      `json:"total"`
	Items     []record `json:"items"`
}

func recordsPath(addr remote.Address, suffix string) string {
	return fmt.Sprintf("/bitable/v1/apps/%s/tables/%s/records%s",
		url.PathEscape(addr.App), url.PathEscape(addr.TableID), suffix)
}

// List pages through every record of the table
func (c *Client) List(ctx context.Context, addr remote.Address) iter.Seq2[models.Row, error] {
	return func(yield func(models.Row, error) bool) {
		pageToken := ""
		for page := 0; ; page++ {
			q := url.Values{"page_size": {strconv.Itoa(remote.BatchSize)}}
			if pageToken != "" {
				q.Set("page_token", pageToken)
			}

			var data listData
			if err := c.call(ctx, http.MethodGet, recordsPath(addr, ""), q, nil, &data); err != nil {
				var authErr *remote.AuthError
				if errors.As(err, &authErr) {
					yield(models.Row{}, err)
					return
				}
				yield(models.Row{}, &remote.ReadError{Page: page, Message: "list records failed", Err: err})
				return
			}

			for _, item := range data.Items {
				if !yield(decodeRecord(item), nil) {
					return
				}
			}

			if !data.HasMore {
				return
			}
			if data.PageToken == "" || data.PageToken == pageToken {
				yield(models.Row{}, &remote.ReadError{Page: page, Message: "has_more set but page token did not advance"})
				return
			}
			pageToken = data.PageToken
		}
	}
}

// DeleteAll lists every record id, then deletes them in batches
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
		body := map[string]any{"records": batch}
		if err := c.call(ctx, http.MethodPost, recordsPath(addr, "/batch_delete"), nil, body, nil); err != nil {
			return &remote.WriteError{Op: "delete", Batch: i, Total: len(batches), Message: errorMessage(err), Err: err}
		}
	}

	logger.Info("Cleared remote table", map[string]interface{}{
		"table":   addr.String(),
		"records": len(ids),
		"batches": len(batches),
	})
	return nil
}

// Insert creates rows in batches, stopping at the first failed batch
func (c *Client) Insert(ctx context.Context, addr remote.Address, rows []models.Row) error {
	batches := remote.Batches(rows, remote.BatchSize)
	for i, batch := range batches {
		records := make([]record, 0, len(batch))
		for _, row := range batch {
			records = append(records, encodeRow(row))
		}

		body := map[string]any{"records": records}
		if err := c.call(ctx, http.MethodPost, recordsPath(addr, "/batch_create"), nil, body, nil); err != nil {
			return &remote.WriteError{Op: "insert", Batch: i, Total: len(batches), Message: errorMessage(err), Err: err}
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

func errorMessage(err error) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Msg
	}
	return "request failed"
}

// encodeRow writes only non-empty columns; empty cells read back as empty strings anyway
func encodeRow(row models.Row) record {
	fields := make(map[string]any)
	for name, value := range row.Fields() {
		if value != "" {
			fields[name] = value
		}
	}
	return record{Fields: fields}
}

func decodeRecord(r record) models.Row {
	fields := make(map[string]string, len(r.Fields))
	for name, v := range r.Fields {
		fields[name] = cellText(v)
	}
	return models.RowFromFields(r.RecordID, fields)
}

// cellText flattens the shapes a text-like Bitable cell can come back as: a plain string,
// an array of rich text segments, a number, or a link object.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		var b strings.Builder
		for _, seg := range val {
			b.WriteString(cellText(seg))
		}
		return b.String()
	case map[string]any:
		if link, ok := val["link"].(string); ok && link != "" {
			return link
		}
		if text, ok := val["text"]; ok {
			return cellText(text)
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}
