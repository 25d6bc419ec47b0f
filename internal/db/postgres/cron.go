package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xyqyear/mcadmin/internal/cron"
)

// CronRepo implements cron.Store against the CronJob and CronJobExecution
// tables, following the teacher's filter-builder idiom from
// SessionRepository.ListWithFilters (dynamic WHERE clause assembly with
// positional placeholders).
type CronRepo struct {
	pool *pgxpool.Pool
}

var _ cron.Store = (*CronRepo)(nil)

func (r *CronRepo) UpsertJob(ctx context.Context, job cron.Job) error {
	const query = `
		INSERT INTO cron_jobs (cronjob_id, identifier, name, cron_expr, cron_second, params, execution_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cronjob_id) DO UPDATE SET
			identifier = EXCLUDED.identifier,
			name = EXCLUDED.name,
			cron_expr = EXCLUDED.cron_expr,
			cron_second = EXCLUDED.cron_second,
			params = EXCLUDED.params,
			status = EXCLUDED.status,
			updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query,
		job.CronjobID, job.Identifier, job.Name, job.Cron, job.Second,
		job.ParamsJSON, job.ExecutionCount, job.Status)
	return err
}

func (r *CronRepo) GetJob(ctx context.Context, cronjobID string) (cron.Job, bool, error) {
	const query = `
		SELECT cronjob_id, identifier, name, cron_expr, cron_second, params, execution_count, status, created_at, updated_at
		FROM cron_jobs WHERE cronjob_id = $1
	`
	job, err := scanJob(r.pool.QueryRow(ctx, query, cronjobID))
	if err == pgx.ErrNoRows {
		return cron.Job{}, false, nil
	}
	return job, err == nil, err
}

func (r *CronRepo) GetAllJobs(ctx context.Context, filter cron.Filter) ([]cron.Job, error) {
	query := `
		SELECT cronjob_id, identifier, name, cron_expr, cron_second, params, execution_count, status, created_at, updated_at
		FROM cron_jobs
	`
	var clauses []string
	var args []interface{}
	argIdx := 1

	if filter.Identifier != "" {
		clauses = append(clauses, fmt.Sprintf("identifier = $%d", argIdx))
		args = append(args, filter.Identifier)
		argIdx++
	}
	if filter.NameContains != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", argIdx))
		args = append(args, "%"+filter.NameContains+"%")
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, s)
			argIdx++
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY cronjob_id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []cron.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (cron.Job, error) {
	var job cron.Job
	var params []byte
	err := row.Scan(
		&job.CronjobID, &job.Identifier, &job.Name, &job.Cron, &job.Second,
		&params, &job.ExecutionCount, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return cron.Job{}, err
	}
	job.ParamsJSON = json.RawMessage(params)
	return job, nil
}

func (r *CronRepo) SetStatus(ctx context.Context, cronjobID string, status cron.JobStatus) error {
	const query = `UPDATE cron_jobs SET status = $2, updated_at = now() WHERE cronjob_id = $1`
	_, err := r.pool.Exec(ctx, query, cronjobID, status)
	return err
}

func (r *CronRepo) IncrementExecutionCount(ctx context.Context, cronjobID string) error {
	const query = `UPDATE cron_jobs SET execution_count = execution_count + 1, updated_at = now() WHERE cronjob_id = $1`
	_, err := r.pool.Exec(ctx, query, cronjobID)
	return err
}

func (r *CronRepo) InsertExecution(ctx context.Context, exec cron.Execution) error {
	const query = `
		INSERT INTO cron_job_executions (execution_id, cronjob_id, started_at, status)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, exec.ExecutionID, exec.CronjobID, exec.StartedAt, exec.Status)
	return err
}

func (r *CronRepo) FinishExecution(ctx context.Context, exec cron.Execution) error {
	const query = `
		UPDATE cron_job_executions
		SET ended_at = $2, duration_ms = $3, status = $4, messages = $5
		WHERE execution_id = $1
	`
	_, err := r.pool.Exec(ctx, query, exec.ExecutionID, exec.EndedAt, exec.DurationMs, exec.Status, exec.Messages)
	return err
}

func (r *CronRepo) GetExecutionHistory(ctx context.Context, cronjobID string, limit int) ([]cron.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT execution_id, cronjob_id, started_at, ended_at, duration_ms, status, messages
		FROM cron_job_executions
		WHERE cronjob_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, cronjobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []cron.Execution
	for rows.Next() {
		var e cron.Execution
		if err := rows.Scan(&e.ExecutionID, &e.CronjobID, &e.StartedAt, &e.EndedAt, &e.DurationMs, &e.Status, &e.Messages); err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}
