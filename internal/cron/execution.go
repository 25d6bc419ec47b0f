package cron

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ExecutionStatus mirrors the CronJobExecution.status enum from spec.md §3.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// ExecutionContext is the per-run value passed to a registered job function.
// It carries the job's params and a log buffer the function appends to via
// Log, modeling the original's context-variable-based ExecutionContext as an
// explicit first-argument value instead (Design Notes §9: no task-locals).
type ExecutionContext struct {
	CronjobID   string
	Identifier  string
	ExecutionID string
	Params      json.RawMessage
	StartedAt   time.Time

	mu       sync.Mutex
	messages []string
	cancel   atomic.Bool
}

func newExecutionContext(cronjobID, identifier, executionID string, params json.RawMessage, startedAt time.Time) *ExecutionContext {
	return &ExecutionContext{
		CronjobID:   cronjobID,
		Identifier:  identifier,
		ExecutionID: executionID,
		Params:      params,
		StartedAt:   startedAt,
	}
}

// Log appends a timestamped message to the execution's message buffer.
func (c *ExecutionContext) Log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05.000"), msg))
}

// Messages returns a copy of the accumulated log buffer.
func (c *ExecutionContext) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.messages))
	copy(out, c.messages)
	return out
}

// RequestCancel asks the running job to stop at its next cooperative check
// point. The job function must poll CancelRequested itself; nothing forcibly
// interrupts it.
func (c *ExecutionContext) RequestCancel() { c.cancel.Store(true) }

// CancelRequested reports whether RequestCancel has been called for this
// execution.
func (c *ExecutionContext) CancelRequested() bool { return c.cancel.Load() }

// ErrCancelled is returned by a job function to signal cooperative
// cancellation; the execution wrapper records status CANCELLED instead of
// FAILED when it sees this sentinel.
var ErrCancelled = fmt.Errorf("cron: execution cancelled")
