package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// ReportRepository persists report job metadata.
type ReportRepository struct {
	store docstore.Store
	jobs  collection[models.ReportJob]
}

// NewReportRepository constructs the repository.
func NewReportRepository(store docstore.Store) *ReportRepository {
	return &ReportRepository{store: store, jobs: newCollection[models.ReportJob](store, CollectionReportJobs)}
}

// Create inserts a new report job with generated defaults.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = docstore.NewID()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if err := r.store.InsertWithID(ctx, CollectionReportJobs, job.ID, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID returns a job by its identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := r.jobs.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return job, nil
}

// UpdateReportJobParams defines the mutable fields.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	FilePath     *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	fields := docstore.Fields{}
	if params.Status != nil {
		fields["status"] = *params.Status
	}
	if params.Progress != nil {
		fields["progress"] = *params.Progress
	}
	if params.ResultURL != nil {
		fields["resultUrl"] = *params.ResultURL
	}
	if params.FilePath != nil {
		fields["filePath"] = *params.FilePath
	}
	if params.ErrorMessage != nil {
		fields["errorMessage"] = *params.ErrorMessage
	}
	if params.FinishedAt != nil {
		fields["finishedAt"] = *params.FinishedAt
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.Patch(ctx, CollectionReportJobs, id, fields); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs, oldest first, for cold start recovery.
func (r *ReportRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	jobs, err := r.jobs.by(ctx, "status", models.ReportStatusQueued)
	if err != nil {
		return nil, fmt.Errorf("list queued report jobs: %w", err)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	jobs, err := r.jobs.by(ctx, "status", models.ReportStatusFinished)
	if err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	expired := make([]models.ReportJob, 0, len(jobs))
	for _, job := range jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			expired = append(expired, job)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].FinishedAt.Before(*expired[j].FinishedAt) })
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}
