package remote

import "fmt"

// AuthError means credentials are missing, incomplete or rejected
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Err)
	}
	return "authentication failed: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// ResolutionError means a table indirection could not be followed. Callers fall back to the
// direct address.
type ResolutionError struct {
	Node    string
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolve table from node %q: %s", e.Node, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ReadError means listing failed part way; rows read so far must be discarded
type ReadError struct {
	Page    int
	Message string
	Err     error
}

func (e *ReadError) Error() string {
	msg := fmt.Sprintf("read page %d: %s", e.Page+1, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError names the batch that failed. Batch is zero based; earlier batches stay applied.
type WriteError struct {
	Op      string // "insert" or "delete"
	Batch   int
	Total   int
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("%s batch %d of %d failed: %s", e.Op, e.Batch+1, e.Total, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WriteError) Unwrap() error { return e.Err }
