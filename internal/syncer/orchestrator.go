// Package syncer runs push and pull cycles between the local store and a remote table.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/mapper"
	"github.com/takak2166/promptsync/internal/remote"
	"github.com/takak2166/promptsync/internal/store"
)

// Connector builds a remote table client from the current settings. It is called once per
// cycle so that saved credential changes take effect on the next sync.
type Connector func(ctx context.Context) (remote.Table, error)

// Orchestrator owns the sync status keys and allows one cycle at a time
type Orchestrator struct {
	store   *store.Store
	connect Connector
	sem     *semaphore.Weighted
	now     func() time.Time
}

// New creates an orchestrator syncing st through tables built by connect
func New(st *store.Store, connect Connector) *Orchestrator {
	return &Orchestrator{
		store:   st,
		connect: connect,
		sem:     semaphore.NewWeighted(1),
		now:     time.Now,
	}
}

// Push replaces the remote table with the flattened local libraries
func (o *Orchestrator) Push(ctx context.Context) error {
	return o.run(ctx, "push", o.push)
}

// Pull replaces the local libraries with the ones rebuilt from the remote table
func (o *Orchestrator) Pull(ctx context.Context) error {
	return o.run(ctx, "pull", o.pull)
}

func (o *Orchestrator) run(ctx context.Context, op string, cycle func(context.Context) error) error {
	if !o.sem.TryAcquire(1) {
		logger.Warn("Sync rejected", ErrSyncInProgress, map[string]interface{}{"op": op})
		return ErrSyncInProgress
	}
	defer o.sem.Release(1)

	// A started cycle runs to completion and records its outcome even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	started := o.now()
	logger.Info("Sync started", map[string]interface{}{"op": op})

	err := cycle(ctx)
	if err != nil {
		logger.Error("Sync failed", err, map[string]interface{}{"op": op})
		if recErr := o.store.RecordSyncFailure(ctx, err.Error()); recErr != nil {
			logger.Error("Failed to record sync status", recErr)
		}
		return err
	}

	if err := o.store.RecordSyncSuccess(ctx, o.now()); err != nil {
		return fmt.Errorf("record sync status: %w", err)
	}
	logger.Info("Sync finished", map[string]interface{}{
		"op":      op,
		"elapsed": o.now().Sub(started).String(),
	})
	return nil
}

// Drain waits for a running cycle to finish and then rejects new ones. It returns ctx's error
// if the cycle outlasts ctx.
func (o *Orchestrator) Drain(ctx context.Context) error {
	return o.sem.Acquire(ctx, 1)
}

// open connects, authenticates and resolves the table address. A failed resolution falls
// back to the directly configured address.
func (o *Orchestrator) open(ctx context.Context) (remote.Table, remote.Address, error) {
	table, err := o.connect(ctx)
	if err != nil {
		return nil, remote.Address{}, err
	}
	if err := table.Authenticate(ctx); err != nil {
		return nil, remote.Address{}, err
	}

	addr, err := table.Resolve(ctx)
	if err != nil {
		var authErr *remote.AuthError
		if errors.As(err, &authErr) {
			return nil, remote.Address{}, err
		}
		addr = table.Direct()
		logger.Warn("Falling back to direct table address", err, map[string]interface{}{
			"table": addr.String(),
		})
	}
	return table, addr, nil
}

func (o *Orchestrator) push(ctx context.Context) error {
	table, addr, err := o.open(ctx)
	if err != nil {
		return err
	}

	libs, _, err := o.store.Libraries(ctx)
	if err != nil {
		return fmt.Errorf("read local libraries: %w", err)
	}
	if len(libs) == 0 {
		return &NoDataError{Op: "push", Message: "no local libraries to push"}
	}

	// Leftover records only cause duplicates, which pull tolerates
	if err := table.DeleteAll(ctx, addr); err != nil {
		logger.Warn("Failed to clear remote table, inserting anyway", err, map[string]interface{}{
			"table": addr.String(),
		})
	}

	rows := mapper.Flatten(libs)
	if err := table.Insert(ctx, addr, rows); err != nil {
		return err
	}

	logger.Info("Pushed libraries", map[string]interface{}{
		"table":     addr.String(),
		"libraries": len(libs),
		"rows":      len(rows),
	})
	return nil
}

func (o *Orchestrator) pull(ctx context.Context) error {
	table, addr, err := o.open(ctx)
	if err != nil {
		return err
	}

	rows, err := remote.Collect(table.List(ctx, addr))
	if err != nil {
		return err
	}

	libs := mapper.Reconstruct(rows)
	if len(libs) == 0 {
		return &NoDataError{Op: "pull", Message: fmt.Sprintf("remote table has no libraries (%d rows read)", len(rows))}
	}

	current := mapper.CurrentLibraryID(libs)
	if err := o.store.ReplaceLibraries(ctx, libs, current); err != nil {
		return fmt.Errorf("write pulled libraries: %w", err)
	}

	logger.Info("Pulled libraries", map[string]interface{}{
		"table":     addr.String(),
		"libraries": len(libs),
		"rows":      len(rows),
		"current":   current,
	})
	return nil
}
