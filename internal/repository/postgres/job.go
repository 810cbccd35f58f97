package postgres

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/domain/job"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
	"github.com/adforge/adforge/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

type jobRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewJobRepository creates a new instance of the content job repository
func NewJobRepository(db *postgres.DB, logger *logger.Logger) job.Repository {
	return &jobRepository{
		db:     db,
		logger: logger,
	}
}

func (r *jobRepository) Create(ctx context.Context, j *job.ContentJob) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, `
		INSERT INTO content_jobs (
			id, org_id, project_id, job_type, provider, input_media_url, prompt_text,
			status, provider_job_id, output_media_url, error_message, charge_entry_id,
			attempts, dispatched_at, created_by, created_at, updated_at
		) VALUES (
			:id, :org_id, :project_id, :job_type, :provider, :input_media_url, :prompt_text,
			:status, :provider_job_id, :output_media_url, :error_message, :charge_entry_id,
			:attempts, :dispatched_at, :created_by, :created_at, :updated_at
		)`, j)
	if err != nil {
		return postgres.WrapError(err, "failed to create content job")
	}
	return nil
}

func (r *jobRepository) Get(ctx context.Context, id string) (*job.ContentJob, error) {
	var j job.ContentJob
	err := r.db.GetQuerier(ctx).GetContext(ctx, &j, `
		SELECT * FROM content_jobs
		WHERE id = $1`, id)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to get content job")
	}
	return &j, nil
}

func (r *jobRepository) Update(ctx context.Context, j *job.ContentJob) error {
	j.UpdatedAt = time.Now().UTC()

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, `
		UPDATE content_jobs
		SET
			status = :status,
			provider_job_id = :provider_job_id,
			output_media_url = :output_media_url,
			error_message = :error_message,
			charge_entry_id = :charge_entry_id,
			attempts = :attempts,
			dispatched_at = :dispatched_at,
			updated_at = :updated_at
		WHERE id = :id`, j)
	if err != nil {
		return postgres.WrapError(err, "failed to update content job")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.WrapError(err, "failed to read update result")
	}
	if rows == 0 {
		return ierr.NewError("content job not found").
			WithHint("Job not found").
			WithReportableDetails(map[string]any{
				"job_id": j.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *jobRepository) List(ctx context.Context, filter *types.JobFilter) ([]*job.ContentJob, error) {
	statuses := lo.Map(filter.Statuses, func(s types.JobStatus, _ int) string {
		return string(s)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = types.FILTER_DEFAULT_LIMIT
	}

	jobs := make([]*job.ContentJob, 0, limit)
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &jobs, `
		SELECT * FROM content_jobs
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
		AND ($2::timestamptz IS NULL OR dispatched_at < $2::timestamptz)
		ORDER BY dispatched_at ASC NULLS LAST, id ASC
		LIMIT $3`, pq.Array(statuses), filter.DispatchedBefore, limit)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to list content jobs")
	}
	return jobs, nil
}
