// Package remote defines the record-shaped table contract implemented by every sync backend.
package remote

import (
	"context"
	"iter"

	"github.com/takak2166/promptsync/internal/models"
)

// BatchSize caps records per list page, insert call and delete call
const BatchSize = 500

// Address identifies one concrete remote table
type Address struct {
	// App is the container holding the table (Bitable app token); empty for backends
	// where TableID alone is addressable
	App     string
	TableID string
}

func (a Address) String() string {
	if a.App == "" {
		return a.TableID
	}
	return a.App + "/" + a.TableID
}

//go:generate mockgen -source=table.go -destination=mock_remote/mock_table.go -package=mock_remote
type Table interface {
	// Authenticate obtains a token. Incomplete credentials fail with *AuthError before any
	// network call; no other method works until it succeeds.
	Authenticate(ctx context.Context) error

	// Resolve follows a configured indirection to a concrete table. Without indirection it
	// returns Direct(). A target that is not a table fails with *ResolutionError.
	Resolve(ctx context.Context) (Address, error)

	// Direct is the address configured without indirection, used as the fallback
	Direct() Address

	// List yields every row in the table, following the page cursor to the end. Each range
	// over the sequence starts again from the first page.
	List(ctx context.Context, addr Address) iter.Seq2[models.Row, error]

	// DeleteAll removes every record in batches. An empty table is not an error.
	DeleteAll(ctx context.Context, addr Address) error

	// Insert writes rows in batches of at most BatchSize; the first failing batch aborts the
	// rest with *WriteError.
	Insert(ctx context.Context, addr Address, rows []models.Row) error
}

// Batches splits items into consecutive chunks of at most size
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// Collect drains seq, stopping at the first error so nothing partial is returned
func Collect(seq iter.Seq2[models.Row, error]) ([]models.Row, error) {
	var rows []models.Row
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
