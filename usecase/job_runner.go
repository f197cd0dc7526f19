package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// IJobRunner executes due scheduled jobs. It is safe to run from several processes at once:
// each job is claimed atomically before any platform is touched.
type IJobRunner interface {
	ProcessDueJobs(ctx context.Context) (*dto.ProcessSummary, error)
}

type RunnerConfig struct {
	BatchSize      int
	Concurrency    int
	PublishTimeout time.Duration
}

type JobRunner struct {
	jobs       repository.IScheduledJob
	attempts   repository.IPublishAttempt
	archive    repository.IAttemptArchive
	contents   repository.IContent
	blobs      repository.IBlobStore
	resolver   ICredentialResolver
	publishers map[model.Platform]repository.IPublisher
	events     repository.IEventPublisher
	cfg        RunnerConfig
	now        func() time.Time
}

// NewJobRunner wires the runner. archive may be nil.
func NewJobRunner(
	jobs repository.IScheduledJob,
	attempts repository.IPublishAttempt,
	archive repository.IAttemptArchive,
	contents repository.IContent,
	blobs repository.IBlobStore,
	resolver ICredentialResolver,
	publishers map[model.Platform]repository.IPublisher,
	events repository.IEventPublisher,
	cfg RunnerConfig,
) *JobRunner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Minute
	}
	return &JobRunner{
		jobs:       jobs,
		attempts:   attempts,
		archive:    archive,
		contents:   contents,
		blobs:      blobs,
		resolver:   resolver,
		publishers: publishers,
		events:     events,
		cfg:        cfg,
		now:        utils.GetCurrentTime,
	}
}

func (r *JobRunner) ProcessDueJobs(ctx context.Context) (*dto.ProcessSummary, error) {
	due, err := r.jobs.FetchDue(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch due jobs: %w", err)
	}

	results := make([]*dto.JobResult, len(due))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, job := range due {
		i, job := i, job
		g.Go(func() error {
			results[i] = r.processJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	summary := &dto.ProcessSummary{Results: []dto.JobResult{}}
	for _, res := range results {
		if res != nil {
			summary.Results = append(summary.Results, *res)
		}
	}
	summary.Processed = len(summary.Results)
	if len(due) > 0 {
		logger.GetLogger().WithFields(logrus.Fields{"due": len(due), "processed": summary.Processed}).Info("Scheduled jobs processed")
	}
	return summary, nil
}

// processJob returns nil when another worker owns the job.
func (r *JobRunner) processJob(ctx context.Context, job *model.ScheduledJob) *dto.JobResult {
	lg := logger.GetLogger().WithField("job_id", job.ID)
	claimed, err := r.jobs.Claim(ctx, job.ID, r.now())
	if err != nil {
		lg.WithField("error", err).Error("Failed to claim job")
		return nil
	}
	if !claimed {
		lg.Debug("Job claimed by another worker")
		return nil
	}
	r.emitStatus(job, model.JobProcessing, "")

	// A claimed job always reaches a final status; publishes stay bounded by PublishTimeout.
	ctx = context.WithoutCancel(ctx)
	attempts := r.publishAll(ctx, job)

	if err := r.attempts.Insert(ctx, attempts); err != nil {
		lg.WithField("error", err).Error("Failed to record publish attempts")
	}
	if r.archive != nil {
		if err := r.archive.Archive(ctx, attempts); err != nil {
			lg.WithField("error", err).Warn("Failed to archive publish attempts")
		}
	}

	status := model.JobCompleted
	var firstErr string
	for _, a := range attempts {
		if a.Success {
			continue
		}
		status = model.JobFailed
		if firstErr == "" && a.ErrorMessage != nil {
			firstErr = fmt.Sprintf("%s: %s", a.Platform, *a.ErrorMessage)
		}
	}
	var errMsg *string
	if firstErr != "" {
		errMsg = &firstErr
	}
	if err := r.jobs.Finish(ctx, job.ID, status, errMsg, r.now()); err != nil {
		lg.WithField("error", err).Error("Failed to finish job")
	}
	lg.WithField("status", status).Info("Job finished")
	r.emitStatus(job, status, firstErr)
	return &dto.JobResult{ID: job.ID, Status: status, Error: firstErr}
}

// publishAll publishes to every platform of the job concurrently. Attempts keep the job's platform order.
func (r *JobRunner) publishAll(ctx context.Context, job *model.ScheduledJob) []*model.PublishAttempt {
	attempts := make([]*model.PublishAttempt, len(job.Platforms))
	content, ref, err := r.loadContent(ctx, job)
	if err != nil {
		logger.GetLogger().WithField("job_id", job.ID).WithField("error", err).Error("Failed to load content")
		for i, p := range job.Platforms {
			attempts[i] = r.failedAttempt(job, p, err)
		}
		return attempts
	}

	var g errgroup.Group
	for i, p := range job.Platforms {
		i, p := i, p
		g.Go(func() error {
			meta := dto.PublishMetadata{
				Title:       content.Title,
				Description: content.Description,
				Tags:        content.TagList(),
				Privacy:     content.Privacy,
				Options:     job.OptionsFor(p),
			}
			attempts[i] = r.publishOne(ctx, job, p, ref, meta)
			return nil
		})
	}
	_ = g.Wait()
	return attempts
}

func (r *JobRunner) loadContent(ctx context.Context, job *model.ScheduledJob) (*model.Content, dto.ContentRef, error) {
	content, err := r.contents.GetByID(ctx, job.ContentID)
	if err != nil {
		return nil, dto.ContentRef{}, fmt.Errorf("load content %s: %w", job.ContentID, err)
	}
	if content.UserID != job.UserID {
		return nil, dto.ContentRef{}, fmt.Errorf("content %s: %w", job.ContentID, model.ErrNotFound)
	}
	ref := dto.ContentRef{
		ContentID:   content.ID,
		BlobKey:     content.BlobKey,
		ContentType: content.ContentType,
		Size:        content.SizeBytes,
	}
	if ref.PublicURL, err = r.blobs.PublicURL(ctx, content.BlobKey); err != nil {
		return nil, dto.ContentRef{}, fmt.Errorf("resolve media url: %w", err)
	}
	if content.CoverKey != "" {
		if ref.CoverURL, err = r.blobs.PublicURL(ctx, content.CoverKey); err != nil {
			return nil, dto.ContentRef{}, fmt.Errorf("resolve cover url: %w", err)
		}
	}
	return content, ref, nil
}

func (r *JobRunner) publishOne(ctx context.Context, job *model.ScheduledJob, p model.Platform, ref dto.ContentRef, meta dto.PublishMetadata) *model.PublishAttempt {
	lg := logger.GetLogger().WithFields(logrus.Fields{"job_id": job.ID, "platform": p})
	pub, ok := r.publishers[p]
	if !ok || pub == nil {
		return r.failedAttempt(job, p, &model.ConfigurationError{Platform: p, Field: "publisher"})
	}
	cred, err := r.resolver.Resolve(ctx, job.UserID, p)
	if err != nil {
		lg.WithField("error", err).Warn("Credential unavailable, platform skipped")
		return r.failedAttempt(job, p, err)
	}

	pctx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()
	last := -1
	onProgress := func(pct int) {
		if pct == last {
			return
		}
		last = pct
		v := pct
		r.events.Publish(model.Event{Type: model.EventPublishProgress, UserID: job.UserID, JobID: job.ID, Platform: p, Progress: &v, At: r.now()})
	}

	res, err := pub.Publish(pctx, *cred, ref, meta, onProgress)
	if err != nil {
		var pubErr *model.PublishError
		if !errors.As(err, &pubErr) && errors.Is(pctx.Err(), context.DeadlineExceeded) {
			err = &model.PublishError{Platform: p, Retryable: true, Detail: "publish timed out", Err: err}
		}
		lg.WithField("error", err).Warn("Publish failed")
		return r.failedAttempt(job, p, err)
	}

	lg.WithField("external_id", res.ExternalID).Info("Published")
	if err := r.resolver.MarkSynced(ctx, job.UserID, p); err != nil {
		lg.WithField("error", err).Warn("Failed to record last sync")
	}
	attempt := &model.PublishAttempt{
		JobID:       job.ID,
		UserID:      job.UserID,
		Platform:    p,
		Success:     true,
		AttemptedAt: r.now(),
	}
	if res.ExternalID != "" {
		id := res.ExternalID
		attempt.ExternalID = &id
	}
	if res.URL != "" {
		u := res.URL
		attempt.URL = &u
	}
	r.events.Publish(model.Event{Type: model.EventPublishAttempt, UserID: job.UserID, JobID: job.ID, Platform: p, Status: "success", At: attempt.AttemptedAt})
	return attempt
}

func (r *JobRunner) failedAttempt(job *model.ScheduledJob, p model.Platform, err error) *model.PublishAttempt {
	kind, retryable := model.ClassifyError(err)
	msg := err.Error()
	attempt := &model.PublishAttempt{
		JobID:        job.ID,
		UserID:       job.UserID,
		Platform:     p,
		ErrorKind:    &kind,
		Retryable:    retryable,
		ErrorMessage: &msg,
		AttemptedAt:  r.now(),
	}
	r.events.Publish(model.Event{Type: model.EventPublishAttempt, UserID: job.UserID, JobID: job.ID, Platform: p, Status: "failed", Error: msg, At: attempt.AttemptedAt})
	return attempt
}

func (r *JobRunner) emitStatus(job *model.ScheduledJob, status model.JobStatus, errMsg string) {
	r.events.Publish(model.Event{Type: model.EventJobStatusChanged, UserID: job.UserID, JobID: job.ID, Status: string(status), Error: errMsg, At: r.now()})
}

// RunEvery calls ProcessDueJobs on every tick until ctx ends.
func (r *JobRunner) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.ProcessDueJobs(ctx); err != nil {
				logger.GetLogger().WithField("error", err).Error("Scheduled run failed")
			}
		}
	}
}
