package syncer

import "errors"

// ErrSyncInProgress rejects a sync started while another one is running
var ErrSyncInProgress = errors.New("a sync is already in progress")

// NoDataError means there was nothing to transfer in the given direction
type NoDataError struct {
	Op      string // "push" or "pull"
	Message string
}

func (e *NoDataError) Error() string {
	return e.Op + ": " + e.Message
}
