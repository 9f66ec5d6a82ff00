// Package worker drains the analysis_jobs outbox. Each job asks for content
// analysis of one review; the worker resolves the author through the mapping
// ledger and hands the review to the auto-flagging coordinator.
//
// Jobs are claimed with a conditional update, so several workers (or several
// replicas) can share one table. A job whose worker died is re-queued once
// its lease expires.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/config"
	"github.com/tbourn/go-review-backend/internal/content"
	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/metrics"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// Processor analyzes one review. *services.Coordinator implements it.
type Processor interface {
	Process(ctx context.Context, kind domain.SubjectKind, reviewID, text, authorID string) (content.Analysis, error)
}

// Results reported on the analysis_jobs_total counter.
const (
	resultDone     = "done"
	resultRetry    = "retry"
	resultFailed   = "failed"
	resultRequeued = "requeued"
)

// Worker polls for due jobs.
type Worker struct {
	DB        *gorm.DB
	Processor Processor

	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Lease        time.Duration
	// Backoff is multiplied by the attempt number to delay a retry.
	Backoff time.Duration

	Now func() time.Time

	wake chan struct{}
}

// New builds a Worker from the moderation settings.
func New(db *gorm.DB, p Processor, cfg config.ModerationConfig) *Worker {
	return &Worker{
		DB:           db,
		Processor:    p,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
		Lease:        cfg.JobLease,
		Backoff:      10 * time.Second,
		Now:          func() time.Time { return time.Now().UTC() },
		wake:         make(chan struct{}, 1),
	}
}

// Notify asks the worker to poll now. It never blocks.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	lg := log.Ctx(ctx)
	lg.Info().Dur("poll_interval", w.PollInterval).Int("batch_size", w.BatchSize).Msg("analysis worker started")

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()
	for {
		for {
			n, err := w.RunOnce(ctx)
			if err != nil && ctx.Err() == nil {
				lg.Error().Err(err).Msg("analysis worker poll failed")
			}
			// A full batch suggests a backlog; keep draining.
			if err != nil || n < w.BatchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			lg.Info().Msg("analysis worker stopped")
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// RunOnce performs housekeeping and handles one batch of due jobs. It
// returns the number of jobs claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	now := w.Now()
	lg := log.Ctx(ctx)

	if n, err := repo.RequeueStaleJobs(ctx, w.DB, now.Add(-w.Lease)); err != nil {
		lg.Warn().Err(err).Msg("requeue stale jobs failed")
	} else if n > 0 {
		metrics.JobsProcessed.WithLabelValues(resultRequeued).Add(float64(n))
		lg.Warn().Int64("jobs", n).Msg("re-queued jobs with expired lease")
	}
	if _, err := repo.PurgeExpiredIdempotency(ctx, w.DB, now); err != nil {
		lg.Warn().Err(err).Msg("idempotency purge failed")
	}

	jobs, err := repo.ClaimDueJobs(ctx, w.DB, now, w.BatchSize)
	if err != nil {
		return len(jobs), err
	}
	for _, j := range jobs {
		if ctx.Err() != nil {
			return len(jobs), ctx.Err()
		}
		w.handle(ctx, j)
	}
	return len(jobs), nil
}

func (w *Worker) handle(ctx context.Context, job domain.AnalysisJob) {
	lg := log.Ctx(ctx).With().Str("job_id", job.ID).Str("review_id", job.ReviewID).Int("attempt", job.Attempts).Logger()
	ctx = lg.WithContext(ctx)

	err := w.process(ctx, job)
	if err == nil {
		if err := repo.CompleteJob(ctx, w.DB, job.ID); err != nil {
			lg.Error().Err(err).Msg("complete job failed")
			return
		}
		metrics.JobsProcessed.WithLabelValues(resultDone).Inc()
		return
	}

	if job.Attempts >= w.MaxAttempts {
		lg.Error().Err(err).Msg("analysis job failed permanently")
		if ferr := repo.FailJob(ctx, w.DB, job.ID, err.Error()); ferr != nil {
			lg.Error().Err(ferr).Msg("fail job failed")
		}
		metrics.JobsProcessed.WithLabelValues(resultFailed).Inc()
		return
	}

	next := w.Now().Add(time.Duration(job.Attempts) * w.Backoff)
	lg.Warn().Err(err).Time("retry_at", next).Msg("analysis job will be retried")
	if rerr := repo.RetryJob(ctx, w.DB, job.ID, err.Error(), next); rerr != nil {
		lg.Error().Err(rerr).Msg("retry job failed")
	}
	metrics.JobsProcessed.WithLabelValues(resultRetry).Inc()
}

// process loads the review and its author and runs the processor. A review
// deleted since submission has nothing left to analyze.
func (w *Worker) process(ctx context.Context, job domain.AnalysisJob) error {
	review, err := repo.GetReview(ctx, w.DB, job.SubjectType, job.ReviewID)
	if errors.Is(err, repo.ErrNotFound) {
		log.Ctx(ctx).Info().Msg("review gone, dropping analysis job")
		return nil
	}
	if err != nil {
		return err
	}

	author, err := repo.MappedAuthor(ctx, w.DB, job.ReviewID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	_, err = w.Processor.Process(ctx, job.SubjectType, job.ReviewID, review.ReviewText, author)
	return err
}
