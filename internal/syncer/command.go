package syncer

import (
	"context"
	"fmt"

	"github.com/takak2166/promptsync/internal/logger"
)

// Command actions accepted by Handle
const (
	ActionPush = "syncPush"
	ActionPull = "syncPull"

	legacyActionPush = "syncToFeishu"
	legacyActionPull = "syncFromFeishu"
)

// Result is the reply sent back to a UI surface
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Handle dispatches a command action and never panics
func (o *Orchestrator) Handle(ctx context.Context, action string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sync panicked: %v", r)
			logger.Error("Command handler recovered", err, map[string]interface{}{"action": action})
			res = Result{Error: err.Error()}
		}
	}()

	var err error
	switch action {
	case ActionPush, legacyActionPush:
		err = o.Push(ctx)
	case ActionPull, legacyActionPull:
		err = o.Pull(ctx)
	default:
		err = fmt.Errorf("unknown action %q", action)
	}

	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true}
}
