package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	robfigcron "github.com/robfig/cron/v3"

	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
)

// parser accepts the spec's "5 fields plus optional second field" dialect:
// when the rendered expression has 6 space-separated fields the leading one
// is seconds, otherwise it defaults to 0. This is robfig/cron's
// SecondOptional mode.
var parser = robfigcron.NewParser(
	robfigcron.SecondOptional | robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor,
)

// Manager is the Cron Engine's root object: it owns the robfig/cron
// scheduler, the identifier registry, and the persistence Store, and
// implements every operation in spec.md §4.4.2. Timezone: the underlying
// scheduler runs in UTC, matching the "all timestamps are timezone-aware
// UTC unless noted" rule in spec.md §3 (see DESIGN.md for this Open
// Question's resolution).
type Manager struct {
	logger   *slog.Logger
	store    Store
	registry *Registry
	engine   *robfigcron.Cron

	mu       sync.Mutex
	triggers map[string]robfigcron.EntryID
}

func NewManager(logger *slog.Logger, store Store, registry *Registry) *Manager {
	return &Manager{
		logger:   logger,
		store:    store,
		registry: registry,
		engine: robfigcron.New(
			robfigcron.WithParser(parser),
			robfigcron.WithLocation(time.UTC),
			robfigcron.WithChain(robfigcron.DelayIfStillRunning(robfigcron.DefaultLogger)),
		),
		triggers: make(map[string]robfigcron.EntryID),
	}
}

// Start begins firing registered triggers. Call Recover first to load
// persisted ACTIVE jobs.
func (m *Manager) Start() { m.engine.Start() }

// Stop drains in-flight executions started by the scheduler (robfig/cron's
// own context, bounded by the caller via ctx) and stops firing new ones.
func (m *Manager) Stop(ctx context.Context) error {
	stopCtx := m.engine.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func renderExpr(cronExpr string, second *int) string {
	if second == nil {
		return cronExpr
	}
	return fmt.Sprintf("%d %s", *second, cronExpr)
}

// Create persists a new job row and registers its trigger. If cronjobID is
// empty, an id of "<identifier>_<rand8>" is generated. Creating with an id
// that already exists as CANCELLED re-activates it (upsert semantics).
func (m *Manager) Create(ctx context.Context, identifier string, params []byte, cronExpr string, cronjobID, name string, second *int) (Job, error) {
	reg, ok := m.registry.Lookup(identifier)
	if !ok {
		return Job{}, mcerrors.NewValidation("identifier", fmt.Sprintf("unknown cron identifier %q", identifier))
	}
	if _, err := reg.Decode(params); err != nil {
		return Job{}, mcerrors.WrapValidation("params", err)
	}
	if _, err := parser.Parse(renderExpr(cronExpr, second)); err != nil {
		return Job{}, mcerrors.WrapValidation("cron", err)
	}

	if cronjobID == "" {
		cronjobID = identifier + "_" + uuid.NewString()[:8]
	}
	if name == "" {
		name = identifier
	}

	now := time.Now().UTC()
	job := Job{
		CronjobID:  cronjobID,
		Identifier: identifier,
		Name:       name,
		Cron:       cronExpr,
		Second:     second,
		ParamsJSON: params,
		Status:     JobActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing, found, err := m.store.GetJob(ctx, cronjobID); err == nil && found {
		job.CreatedAt = existing.CreatedAt
		job.ExecutionCount = existing.ExecutionCount
	}

	if err := m.store.UpsertJob(ctx, job); err != nil {
		return Job{}, fmt.Errorf("persist cron job: %w", err)
	}
	if err := m.register(job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Update writes a new schedule/params for an existing job. If the row was
// ACTIVE, the old trigger is removed and the new one registered so the
// change is atomic from the caller's perspective.
func (m *Manager) Update(ctx context.Context, cronjobID, identifier string, params []byte, cronExpr string, second *int) (Job, error) {
	existing, found, err := m.store.GetJob(ctx, cronjobID)
	if err != nil {
		return Job{}, err
	}
	if !found {
		return Job{}, mcerrors.NewNotFound("cronjob", cronjobID)
	}

	reg, ok := m.registry.Lookup(identifier)
	if !ok {
		return Job{}, mcerrors.NewValidation("identifier", fmt.Sprintf("unknown cron identifier %q", identifier))
	}
	if _, err := reg.Decode(params); err != nil {
		return Job{}, mcerrors.WrapValidation("params", err)
	}
	if _, err := parser.Parse(renderExpr(cronExpr, second)); err != nil {
		return Job{}, mcerrors.WrapValidation("cron", err)
	}

	existing.Identifier = identifier
	existing.ParamsJSON = params
	existing.Cron = cronExpr
	existing.Second = second
	existing.UpdatedAt = time.Now().UTC()

	if err := m.store.UpsertJob(ctx, existing); err != nil {
		return Job{}, fmt.Errorf("persist cron job: %w", err)
	}

	m.mu.Lock()
	if id, registered := m.triggers[cronjobID]; registered {
		m.engine.Remove(id)
		delete(m.triggers, cronjobID)
	}
	m.mu.Unlock()

	if existing.Status == JobActive {
		if err := m.register(existing); err != nil {
			return Job{}, err
		}
	}
	return existing, nil
}

// Pause transitions an ACTIVE job to PAUSED and drops its trigger.
func (m *Manager) Pause(ctx context.Context, cronjobID string) error {
	job, found, err := m.store.GetJob(ctx, cronjobID)
	if err != nil {
		return err
	}
	if !found {
		return mcerrors.NewNotFound("cronjob", cronjobID)
	}
	if job.Status != JobActive {
		return mcerrors.NewConflict("cannot pause cronjob %q in status %s", cronjobID, job.Status)
	}

	if err := m.store.SetStatus(ctx, cronjobID, JobPaused); err != nil {
		return err
	}
	m.unregister(cronjobID)
	return nil
}

// Resume transitions a PAUSED or CANCELLED job to ACTIVE and re-registers
// its trigger.
func (m *Manager) Resume(ctx context.Context, cronjobID string) error {
	job, found, err := m.store.GetJob(ctx, cronjobID)
	if err != nil {
		return err
	}
	if !found {
		return mcerrors.NewNotFound("cronjob", cronjobID)
	}
	if job.Status == JobActive {
		return mcerrors.NewConflict("cronjob %q is already active", cronjobID)
	}

	if err := m.store.SetStatus(ctx, cronjobID, JobActive); err != nil {
		return err
	}
	job.Status = JobActive
	return m.register(job)
}

// Cancel soft-deletes a job: status -> CANCELLED, trigger dropped, execution
// history retained.
func (m *Manager) Cancel(ctx context.Context, cronjobID string) error {
	if _, found, err := m.store.GetJob(ctx, cronjobID); err != nil {
		return err
	} else if !found {
		return mcerrors.NewNotFound("cronjob", cronjobID)
	}

	if err := m.store.SetStatus(ctx, cronjobID, JobCancelled); err != nil {
		return err
	}
	m.unregister(cronjobID)
	return nil
}

func (m *Manager) GetConfig(ctx context.Context, cronjobID string) (Job, error) {
	job, found, err := m.store.GetJob(ctx, cronjobID)
	if err != nil {
		return Job{}, err
	}
	if !found {
		return Job{}, mcerrors.NewNotFound("cronjob", cronjobID)
	}
	return job, nil
}

func (m *Manager) GetAll(ctx context.Context, filter Filter) ([]Job, error) {
	return m.store.GetAllJobs(ctx, filter)
}

func (m *Manager) GetExecutionHistory(ctx context.Context, cronjobID string, limit int) ([]Execution, error) {
	return m.store.GetExecutionHistory(ctx, cronjobID, limit)
}

// GetNextRunTime returns the next scheduled fire time for an ACTIVE,
// currently-registered job.
func (m *Manager) GetNextRunTime(cronjobID string) (time.Time, bool) {
	m.mu.Lock()
	id, ok := m.triggers[cronjobID]
	m.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := m.engine.Entry(id)
	if entry.ID == 0 {
		return time.Time{}, false
	}
	return entry.Next, true
}

// Recover loads every ACTIVE row and registers its trigger. Rows with an
// unregistered identifier or params that fail schema validation are left in
// the database untouched but not scheduled, per spec.md §4.4.4.
func (m *Manager) Recover(ctx context.Context) error {
	jobs, err := m.store.GetAllJobs(ctx, Filter{Statuses: []JobStatus{JobActive}})
	if err != nil {
		return fmt.Errorf("load active cron jobs: %w", err)
	}
	for _, job := range jobs {
		reg, ok := m.registry.Lookup(job.Identifier)
		if !ok {
			m.logger.Warn("skip cron recovery: unknown identifier", "cronjob_id", job.CronjobID, "identifier", job.Identifier)
			continue
		}
		if _, err := reg.Decode(job.ParamsJSON); err != nil {
			m.logger.Warn("skip cron recovery: invalid params", "cronjob_id", job.CronjobID, "error", err)
			continue
		}
		if err := m.register(job); err != nil {
			m.logger.Warn("skip cron recovery: bad schedule", "cronjob_id", job.CronjobID, "error", err)
			continue
		}
	}
	return nil
}

// register wires up job's trigger against the scheduler, replacing the
// execution wrapper as the robfig/cron job body.
func (m *Manager) register(job Job) error {
	reg, ok := m.registry.Lookup(job.Identifier)
	if !ok {
		return mcerrors.NewValidation("identifier", fmt.Sprintf("unknown cron identifier %q", job.Identifier))
	}

	id, err := m.engine.AddFunc(renderExpr(job.Cron, job.Second), func() {
		m.runOnce(context.Background(), job.CronjobID, reg)
	})
	if err != nil {
		return fmt.Errorf("schedule cronjob %q: %w", job.CronjobID, err)
	}

	m.mu.Lock()
	m.triggers[job.CronjobID] = id
	m.mu.Unlock()
	return nil
}

func (m *Manager) unregister(cronjobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.triggers[cronjobID]; ok {
		m.engine.Remove(id)
		delete(m.triggers, cronjobID)
	}
}

// runOnce is the execution wrapper from spec.md §4.4.3: it rereads the job's
// current params from the store (so an Update between schedule registration
// and fire time is honored), runs the registered function, and persists the
// outcome. Executions for the same job are serialized by the scheduler's
// DelayIfStillRunning job wrapper (set up in NewManager): a fire that comes
// due while the previous run of the same entry is still going waits for it,
// matching spec.md §5's "cron executions for the same job are serialized"
// rule.
func (m *Manager) runOnce(ctx context.Context, cronjobID string, reg Registration) {
	job, found, err := m.store.GetJob(ctx, cronjobID)
	if err != nil || !found {
		m.logger.Error("cron execution: job disappeared", "cronjob_id", cronjobID, "error", err)
		return
	}

	execCtx := newExecutionContext(cronjobID, job.Identifier, executionID(), job.ParamsJSON, time.Now().UTC())
	exec := Execution{
		ExecutionID: execCtx.ExecutionID,
		CronjobID:   cronjobID,
		StartedAt:   execCtx.StartedAt,
		Status:      ExecutionRunning,
	}
	if err := m.store.InsertExecution(ctx, exec); err != nil {
		m.logger.Error("cron execution: insert execution row failed", "cronjob_id", cronjobID, "error", err)
	}

	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return reg.Fn(execCtx)
	}()

	endedAt := time.Now().UTC()
	durationMs := endedAt.Sub(execCtx.StartedAt).Milliseconds()

	status := ExecutionCompleted
	switch {
	case runErr == ErrCancelled:
		status = ExecutionCancelled
	case runErr != nil:
		status = ExecutionFailed
		execCtx.Log(fmt.Sprintf("error: %v", runErr))
		m.logger.Error("cron execution failed", "cronjob_id", cronjobID, "identifier", job.Identifier, "error", runErr)
	}

	exec.EndedAt = &endedAt
	exec.DurationMs = &durationMs
	exec.Status = status
	exec.Messages = execCtx.Messages()

	if err := m.store.FinishExecution(ctx, exec); err != nil {
		m.logger.Error("cron execution: finish execution row failed", "cronjob_id", cronjobID, "error", err)
	}
	if err := m.store.IncrementExecutionCount(ctx, cronjobID); err != nil {
		m.logger.Error("cron execution: increment count failed", "cronjob_id", cronjobID, "error", err)
	}
}

func executionID() string {
	return uuid.NewString()
}
