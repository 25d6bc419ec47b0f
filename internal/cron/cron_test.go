package cron

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory Store fake for exercising Manager without
// a database.
type memStore struct {
	jobs  map[string]Job
	execs map[string][]Execution
}

func newMemStore() *memStore {
	return &memStore{jobs: map[string]Job{}, execs: map[string][]Execution{}}
}

func (s *memStore) UpsertJob(ctx context.Context, job Job) error {
	s.jobs[job.CronjobID] = job
	return nil
}

func (s *memStore) GetJob(ctx context.Context, cronjobID string) (Job, bool, error) {
	j, ok := s.jobs[cronjobID]
	return j, ok, nil
}

func (s *memStore) GetAllJobs(ctx context.Context, filter Filter) ([]Job, error) {
	var out []Job
	for _, j := range s.jobs {
		if filter.Identifier != "" && j.Identifier != filter.Identifier {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *memStore) SetStatus(ctx context.Context, cronjobID string, status JobStatus) error {
	j := s.jobs[cronjobID]
	j.Status = status
	s.jobs[cronjobID] = j
	return nil
}

func (s *memStore) IncrementExecutionCount(ctx context.Context, cronjobID string) error {
	j := s.jobs[cronjobID]
	j.ExecutionCount++
	s.jobs[cronjobID] = j
	return nil
}

func (s *memStore) InsertExecution(ctx context.Context, exec Execution) error {
	s.execs[exec.CronjobID] = append(s.execs[exec.CronjobID], exec)
	return nil
}

func (s *memStore) FinishExecution(ctx context.Context, exec Execution) error {
	list := s.execs[exec.CronjobID]
	for i, e := range list {
		if e.ExecutionID == exec.ExecutionID {
			list[i] = exec
		}
	}
	return nil
}

func (s *memStore) GetExecutionHistory(ctx context.Context, cronjobID string, limit int) ([]Execution, error) {
	return s.execs[cronjobID], nil
}

const testIdentifier = "noop"

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register(Registration{
		Identifier: testIdentifier,
		Decode:     func(raw json.RawMessage) (any, error) { return nil, nil },
		Fn:         func(ctx *ExecutionContext) error { return nil },
	})
	return r
}

func TestCreateAssignsGeneratedIDAndActiveStatus(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())

	job, err := mgr.Create(context.Background(), testIdentifier, []byte("{}"), "0 5 * * *", "", "", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, job.CronjobID)
	assert.Equal(t, JobActive, job.Status)
	assert.Equal(t, testIdentifier, job.Identifier)
}

func TestCreateWithUnknownIdentifierFails(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())

	_, err := mgr.Create(context.Background(), "does-not-exist", []byte("{}"), "0 5 * * *", "", "", nil)
	assert.Error(t, err)
}

func TestCreateWithInvalidCronExpressionFails(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())

	_, err := mgr.Create(context.Background(), testIdentifier, []byte("{}"), "not a cron expr", "", "", nil)
	assert.Error(t, err)
}

func TestPauseAndResumeRoundTrip(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())
	job, err := mgr.Create(context.Background(), testIdentifier, []byte("{}"), "0 5 * * *", "", "", nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Pause(context.Background(), job.CronjobID))
	got, err := mgr.GetConfig(context.Background(), job.CronjobID)
	require.NoError(t, err)
	assert.Equal(t, JobPaused, got.Status)

	require.NoError(t, mgr.Resume(context.Background(), job.CronjobID))
	got, err = mgr.GetConfig(context.Background(), job.CronjobID)
	require.NoError(t, err)
	assert.Equal(t, JobActive, got.Status)
}

func TestCancelSoftDeletesJob(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())
	job, err := mgr.Create(context.Background(), testIdentifier, []byte("{}"), "0 5 * * *", "", "", nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Cancel(context.Background(), job.CronjobID))
	got, err := mgr.GetConfig(context.Background(), job.CronjobID)
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, got.Status)
}

func TestGetConfigOnMissingJobReturnsNotFound(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())
	_, err := mgr.GetConfig(context.Background(), "does-not-exist")
	assert.Error(t, err)
}

func TestGetAllFiltersByIdentifier(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())
	_, err := mgr.Create(context.Background(), testIdentifier, []byte("{}"), "0 5 * * *", "", "a", nil)
	require.NoError(t, err)

	all, err := mgr.GetAll(context.Background(), Filter{Identifier: testIdentifier})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := mgr.GetAll(context.Background(), Filter{Identifier: "other"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateRejectsUnknownCronjobID(t *testing.T) {
	mgr := NewManager(nil, newMemStore(), newTestRegistry())
	_, err := mgr.Update(context.Background(), "does-not-exist", testIdentifier, []byte("{}"), "0 5 * * *", nil)
	assert.Error(t, err)
}
