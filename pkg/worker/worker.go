package worker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/config"
	"github.com/shelfwatch/shelfwatch/pkg/enrich"
	"github.com/shelfwatch/shelfwatch/pkg/joblogs"
	"github.com/shelfwatch/shelfwatch/pkg/jobs"
	"github.com/shelfwatch/shelfwatch/pkg/metrics"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/notifications"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/shelfwatch/shelfwatch/pkg/watchlists"
	"github.com/uptrace/bun"
)

const defaultPollInterval = 5 * time.Second

type processFunc func(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error

type Options struct {
	Scrapers *scrapers.Registry
	Parsers  *parsers.Registry
	// Generator is nil when AI enrichment is not configured.
	Generator enrich.Generator
}

// Worker runs queued jobs. It implements suture.Service.
type Worker struct {
	config       *config.Config
	log          logger.Logger
	processID    string
	pollInterval time.Duration

	processFuncs map[string]processFunc

	enrichService       *enrich.Service
	ingester            *books.Ingester
	jobService          *jobs.Service
	jobLogService       *joblogs.Service
	notificationService *notifications.Service
	watchlistService    *watchlists.Service
}

func New(cfg *config.Config, db *bun.DB, opts Options) *Worker {
	w := &Worker{
		config:       cfg,
		log:          logger.New(),
		processID:    randStringBytes(8),
		pollInterval: defaultPollInterval,

		enrichService:       enrich.NewService(db, opts.Generator),
		ingester:            books.NewIngester(db, opts.Parsers, cfg.LibraryPath),
		jobService:          jobs.NewService(db),
		jobLogService:       joblogs.NewService(db),
		notificationService: notifications.NewService(db),
		watchlistService:    watchlists.NewService(db, opts.Scrapers),
	}

	w.processFuncs = map[string]processFunc{
		models.JobTypeWatchlistCheck: w.ProcessWatchlistCheckJob,
		models.JobTypeEnrich:         w.ProcessEnrichJob,
		models.JobTypeImport:         w.ProcessImportJob,
	}

	return w
}

func (w *Worker) String() string {
	return "worker"
}

// Serve runs the fetch loop and the job processors until ctx is done.
func (w *Worker) Serve(ctx context.Context) error {
	processes := w.config.WorkerProcesses
	if processes < 1 {
		processes = 1
	}

	queue := make(chan *models.Job)
	var wg sync.WaitGroup
	for i := 0; i < processes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processJobs(ctx, queue)
		}()
	}

	w.log.Info("worker started", logger.Data{"process_id": w.processID, "processes": processes})
	w.fetchJobs(ctx, queue)
	wg.Wait()
	w.log.Info("worker stopped", logger.Data{"process_id": w.processID})

	return ctx.Err()
}

func (w *Worker) fetchJobs(ctx context.Context, queue chan<- *models.Job) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// We're shutting down, so stop adding more jobs to the queue.
			return
		case <-timer.C:
			w.dispatch(ctx, queue)
			timer.Reset(w.pollInterval)
		}
	}
}

// dispatch hands claimed jobs to idle processors until nothing is runnable.
func (w *Worker) dispatch(ctx context.Context, queue chan<- *models.Job) {
	for ctx.Err() == nil {
		job, err := w.jobService.ClaimNextJob(ctx, w.processID)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Err(err).Error("claim job error")
			}
			return
		}
		if job == nil {
			return
		}
		select {
		case queue <- job:
		case <-ctx.Done():
			// The claimed job stays in progress and is picked up again by the
			// next process.
			return
		}
	}
}

func (w *Worker) processJobs(ctx context.Context, queue <-chan *models.Job) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-queue:
			w.processJob(ctx, job)
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *models.Job) {
	// Prep the context to be passed down to the process function.
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": w.processID})
	ctx = log.WithContext(ctx)
	jl := w.jobLogService.NewJobLogger(ctx, job.ID, log)

	err = w.run(ctx, job, jl)
	if err != nil && ctx.Err() != nil {
		// Shutting down; leave the job in progress so it is retried.
		log.Warn("job interrupted", logger.Data{"error": err.Error()})
		return
	}

	// Status updates must land even if the job used up its context.
	ctx = context.WithoutCancel(ctx)

	job.Status = models.JobStatusCompleted
	if err != nil {
		job.Status = models.JobStatusFailed
		jl.Error("job failed", err, nil)
		w.notifyFailure(ctx, job, err)
	} else {
		job.Progress = 100
		jl.Info("job completed", nil)
	}
	metrics.JobsProcessed.WithLabelValues(job.Type, job.Status).Inc()

	err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
		Columns: []string{"status", "progress"},
	})
	if err != nil {
		log.Err(err).Error("update job error")
	}
}

// run invokes the job's process function, turning a panic into an error.
func (w *Worker) run(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) (err error) {
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		return errors.Errorf("no process function for job type %q", job.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
			jl.Fatal("job panicked", err, nil)
		}
	}()

	return fn(ctx, job, jl)
}

func (w *Worker) notifyFailure(ctx context.Context, job *models.Job, cause error) {
	link := fmt.Sprintf("/jobs/%d", job.ID)
	opts := notifications.CreateNotificationOptions{
		Type:    models.NotificationTypeJobFailed,
		Title:   "Job failed",
		Message: fmt.Sprintf("The %s job #%d failed: %s", job.Type, job.ID, errorMessage(cause)),
		Link:    &link,
	}

	var err error
	if job.UserID != nil {
		opts.UserID = *job.UserID
		_, err = w.notificationService.CreateNotification(ctx, opts)
	} else {
		_, err = w.notificationService.NotifyAdmins(ctx, opts)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Error("job failure notification error")
	}
}

// setProgress records progress as a percentage of done over total.
func (w *Worker) setProgress(ctx context.Context, job *models.Job, done, total int) {
	if total <= 0 {
		return
	}
	progress := done * 100 / total
	if progress == job.Progress {
		return
	}
	job.Progress = progress
	err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"progress"}})
	if err != nil {
		logger.FromContext(ctx).Err(err).Warn("update job progress error")
	}
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
