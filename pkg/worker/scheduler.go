package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/jobs"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/watchlists"
	"github.com/uptrace/bun"
)

// Scheduler queues a watchlist_check job on a fixed interval. It implements
// suture.Service.
type Scheduler struct {
	interval         time.Duration
	log              logger.Logger
	jobService       *jobs.Service
	watchlistService *watchlists.Service
}

// NewScheduler returns a scheduler that does nothing when interval is not
// positive.
func NewScheduler(db *bun.DB, interval time.Duration) *Scheduler {
	return &Scheduler{
		interval:         interval,
		log:              logger.New(),
		jobService:       jobs.NewService(db),
		watchlistService: watchlists.NewService(db, nil),
	}
}

func (s *Scheduler) String() string {
	return "watchlist-scheduler"
}

func (s *Scheduler) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Info("watchlist scheduler disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("watchlist scheduler started", logger.Data{"interval": s.interval.String()})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			queued, err := s.enqueueWatchlistCheck(ctx)
			if err != nil {
				s.log.Err(err).Error("schedule watchlist check error")
				continue
			}
			if queued {
				s.log.Info("watchlist check queued")
			}
		}
	}
}

// enqueueWatchlistCheck queues a full check unless one is already pending or
// running, or no watchlist is active.
func (s *Scheduler) enqueueWatchlistCheck(ctx context.Context) (bool, error) {
	active, err := s.jobService.HasActiveJobByType(ctx, models.JobTypeWatchlistCheck)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if active {
		return false, nil
	}

	ids, err := s.watchlistService.ListActiveIDs(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if len(ids) == 0 {
		return false, nil
	}

	err = s.jobService.CreateJob(ctx, &models.Job{
		Type:       models.JobTypeWatchlistCheck,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobWatchlistCheckData{},
	})
	if err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}
