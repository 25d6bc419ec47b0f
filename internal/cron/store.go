package cron

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus mirrors the CronJob.status enum from spec.md §3.
type JobStatus string

const (
	JobActive    JobStatus = "ACTIVE"
	JobPaused    JobStatus = "PAUSED"
	JobCancelled JobStatus = "CANCELLED"
)

// Job is a persisted CronJob row.
type Job struct {
	CronjobID      string
	Identifier     string
	Name           string
	Cron           string // 5-field minute/hour/dom/month/dow expression
	Second         *int   // optional seconds field
	ParamsJSON     json.RawMessage
	ExecutionCount int64
	Status         JobStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Execution is a persisted CronJobExecution row.
type Execution struct {
	ExecutionID string
	CronjobID   string
	StartedAt   time.Time
	EndedAt     *time.Time
	DurationMs  *int64
	Status      ExecutionStatus
	Messages    []string
}

// Filter narrows GetAll's result set. Zero-value fields are unconstrained.
type Filter struct {
	Identifier    string
	Statuses      []JobStatus
	NameContains  string
}

// Store is the persistence surface the Manager depends on. internal/db/postgres
// implements this against the CronJob/CronJobExecution tables.
type Store interface {
	UpsertJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, cronjobID string) (Job, bool, error)
	GetAllJobs(ctx context.Context, filter Filter) ([]Job, error)
	SetStatus(ctx context.Context, cronjobID string, status JobStatus) error
	IncrementExecutionCount(ctx context.Context, cronjobID string) error

	InsertExecution(ctx context.Context, exec Execution) error
	FinishExecution(ctx context.Context, exec Execution) error
	GetExecutionHistory(ctx context.Context, cronjobID string, limit int) ([]Execution, error)
}
