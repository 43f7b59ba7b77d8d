package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveJobOptions struct {
	ID *int
	// UserID limits the lookup to jobs started by that user.
	UserID *int
}

type ListJobsOptions struct {
	Limit              *int
	Offset             *int
	Statuses           []string
	Type               *string
	UserID             *int
	ProcessIDToExclude *string

	includeTotal bool
}

type UpdateJobOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJob(ctx context.Context, job *models.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	if job.Data == "" && job.DataParsed != nil {
		// Marshal the data into a JSON string to save into the database.
		data, err := json.Marshal(job.DataParsed)
		if err != nil {
			return errors.WithStack(err)
		}
		job.Data = string(data)
	}

	_, err := svc.db.
		NewInsert().
		Model(job).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.Job, error) {
	job := &models.Job{}

	q := svc.db.
		NewSelect().
		Model(job)

	if opts.ID != nil {
		q = q.Where("j.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("j.user_id = ?", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	err = job.UnmarshalData()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.Job, error) {
	j, _, err := svc.listJobsWithTotal(ctx, opts)
	return j, errors.WithStack(err)
}

func (svc *Service) ListJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	opts.includeTotal = true
	return svc.listJobsWithTotal(ctx, opts)
}

func (svc *Service) listJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	jobs := []*models.Job{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&jobs).
		Order("j.created_at ASC", "j.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("j.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Type != nil {
		q = q.Where("j.type = ?", *opts.Type)
	}
	if opts.UserID != nil {
		q = q.Where("j.user_id = ?", *opts.UserID)
	}
	if opts.ProcessIDToExclude != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("j.process_id IS NULL").
				WhereOr("j.process_id != ?", *opts.ProcessIDToExclude)
		})
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, job := range jobs {
		err := job.UnmarshalData()
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}

	return jobs, total, nil
}

// HasActiveJobByType checks if there's a pending or in-progress job of the given type.
func (svc *Service) HasActiveJobByType(ctx context.Context, jobType string) (bool, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("type = ?", jobType).
		Where("status IN (?)", bun.In([]string{models.JobStatusPending, models.JobStatusInProgress})).
		Count(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}

// ClaimNextJob marks the oldest runnable job as in progress for processID
// and returns it, or nil when there is nothing to do. In-progress jobs owned
// by another process ID were left behind by a previous run and are claimed
// again.
func (svc *Service) ClaimNextJob(ctx context.Context, processID string) (*models.Job, error) {
	var claimed *models.Job

	// The API process may be writing at the same moment.
	err := database.Retry(ctx, func() error {
		claimed = nil
		return svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			job := &models.Job{}
			err := tx.NewSelect().
				Model(job).
				Where("j.status IN (?)", bun.In([]string{models.JobStatusPending, models.JobStatusInProgress})).
				WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
					return sq.
						Where("j.process_id IS NULL").
						WhereOr("j.process_id != ?", processID)
				}).
				Order("j.created_at ASC", "j.id ASC").
				Limit(1).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			if err != nil {
				return errors.WithStack(err)
			}

			job.Status = models.JobStatusInProgress
			job.ProcessID = &processID
			job.UpdatedAt = time.Now()
			_, err = tx.NewUpdate().
				Model(job).
				Column("status", "process_id", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			claimed = job
			return nil
		})
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if claimed == nil {
		return nil, nil
	}

	if err := claimed.UnmarshalData(); err != nil {
		return nil, errors.WithStack(err)
	}
	return claimed, nil
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.Job, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	// Update updated_at.
	job.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	var res sql.Result
	err := database.Retry(ctx, func() error {
		var err error
		res, err = svc.db.
			NewUpdate().
			Model(job).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Job")
	}

	return nil
}
