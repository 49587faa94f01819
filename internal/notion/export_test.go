package notion

import "github.com/takak2166/promptsync/internal/models"

// NewWithClient lets external tests inject a mocked NotionClient
func NewWithClient(cfg models.NotionConfig, nc NotionClient) *Client {
	c := newWithClient(cfg, nc)
	c.limiter.SetLimit(1000)
	c.limiter.SetBurst(1000)
	return c
}

var ChunkRunes = chunkRunes
