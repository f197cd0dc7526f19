package usecase

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type IScheduleUsecase interface {
	Create(ctx context.Context, userID string, req dto.CreateJobRequest) (*model.ScheduledJob, error)
	Cancel(ctx context.Context, userID, jobID string) (*model.ScheduledJob, error)
	// Resubmit schedules a new job from a failed one. The failed job itself never changes.
	Resubmit(ctx context.Context, userID, jobID string, req dto.ResubmitJobRequest) (*model.ScheduledJob, error)
	Get(ctx context.Context, userID, jobID string) (*model.ScheduledJob, error)
	List(ctx context.Context, userID string, limit int) ([]*model.ScheduledJob, error)
}

type scheduleUsecase struct {
	jobs     repository.IScheduledJob
	attempts repository.IPublishAttempt
	contents repository.IContent
	events   repository.IEventPublisher
	now      func() time.Time
	newID    func() string
}

func NewScheduleUsecase(jobs repository.IScheduledJob, attempts repository.IPublishAttempt, contents repository.IContent, events repository.IEventPublisher) IScheduleUsecase {
	return &scheduleUsecase{
		jobs:     jobs,
		attempts: attempts,
		contents: contents,
		events:   events,
		now:      utils.GetCurrentTime,
		newID:    uuid.NewString,
	}
}

func (u *scheduleUsecase) Create(ctx context.Context, userID string, req dto.CreateJobRequest) (*model.ScheduledJob, error) {
	if req.ContentID == "" {
		return nil, fmt.Errorf("%w: content_id is required", model.ErrValidation)
	}
	if req.ScheduledFor.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_for is required", model.ErrValidation)
	}
	platforms, err := model.ParsePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}
	options, err := parseOptions(req.PlatformOptions, platforms)
	if err != nil {
		return nil, err
	}
	if err := u.checkContent(ctx, userID, req.ContentID); err != nil {
		return nil, err
	}

	now := u.now()
	job := &model.ScheduledJob{
		ID:              u.newID(),
		UserID:          userID,
		ContentID:       req.ContentID,
		Platforms:       platforms,
		ScheduledFor:    req.ScheduledFor.UTC(),
		Status:          model.JobScheduled,
		Notes:           req.Notes,
		PlatformOptions: options,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	logger.GetLogger().WithField("job_id", job.ID).WithField("user_id", userID).Info("Job scheduled")
	u.emit(job)
	return job, nil
}

func (u *scheduleUsecase) checkContent(ctx context.Context, userID, contentID string) error {
	content, err := u.contents.GetByID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("content %s: %w", contentID, err)
	}
	if content.UserID != userID {
		return fmt.Errorf("content %s: %w", contentID, model.ErrNotFound)
	}
	return nil
}

func parseOptions(raw map[string]map[string]string, platforms []model.Platform) (model.PlatformOptions, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	targeted := make(map[model.Platform]bool, len(platforms))
	for _, p := range platforms {
		targeted[p] = true
	}
	out := make(model.PlatformOptions, len(raw))
	for key, opts := range raw {
		p, err := model.ParsePlatform(key)
		if err != nil {
			return nil, err
		}
		if !targeted[p] {
			return nil, fmt.Errorf("%w: options given for untargeted platform %s", model.ErrValidation, p)
		}
		if len(opts) > 0 {
			out[p] = opts
		}
	}
	return out, nil
}

func (u *scheduleUsecase) Get(ctx context.Context, userID, jobID string) (*model.ScheduledJob, error) {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", jobID, model.ErrNotFound)
	}
	return job, nil
}

func (u *scheduleUsecase) List(ctx context.Context, userID string, limit int) ([]*model.ScheduledJob, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return u.jobs.ListByUser(ctx, userID, limit)
}

func (u *scheduleUsecase) Cancel(ctx context.Context, userID, jobID string) (*model.ScheduledJob, error) {
	job, err := u.Get(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(job.Status, model.JobCancelled) {
		return nil, fmt.Errorf("%w: job is %s", model.ErrInvalidTransition, job.Status)
	}
	now := u.now()
	ok, err := u.jobs.Cancel(ctx, jobID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	if !ok {
		// The runner claimed it between the read and the update.
		return nil, fmt.Errorf("%w: job is no longer scheduled", model.ErrInvalidTransition)
	}
	job.Status = model.JobCancelled
	job.UpdatedAt = now
	u.emit(job)
	return job, nil
}

func (u *scheduleUsecase) Resubmit(ctx context.Context, userID, jobID string, req dto.ResubmitJobRequest) (*model.ScheduledJob, error) {
	prev, err := u.Get(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if prev.Status != model.JobFailed {
		return nil, fmt.Errorf("%w: only failed jobs can be resubmitted, job is %s", model.ErrInvalidTransition, prev.Status)
	}

	var platforms []model.Platform
	if len(req.Platforms) > 0 {
		if platforms, err = model.ParsePlatforms(req.Platforms); err != nil {
			return nil, err
		}
	} else if platforms, err = u.failedPlatforms(ctx, prev); err != nil {
		return nil, err
	}

	now := u.now()
	scheduledFor := now
	if req.ScheduledFor != nil && !req.ScheduledFor.IsZero() {
		scheduledFor = req.ScheduledFor.UTC()
	}
	var options model.PlatformOptions
	for _, p := range platforms {
		if opts := prev.OptionsFor(p); len(opts) > 0 {
			if options == nil {
				options = model.PlatformOptions{}
			}
			options[p] = opts
		}
	}
	from := prev.ID
	job := &model.ScheduledJob{
		ID:              u.newID(),
		UserID:          userID,
		ContentID:       prev.ContentID,
		Platforms:       platforms,
		ScheduledFor:    scheduledFor,
		Status:          model.JobScheduled,
		Notes:           prev.Notes,
		PlatformOptions: options,
		ResubmittedFrom: &from,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	logger.GetLogger().WithField("job_id", job.ID).WithField("resubmitted_from", prev.ID).Info("Job resubmitted")
	u.emit(job)
	return job, nil
}

// failedPlatforms returns the platforms whose attempt failed, in the job's order.
// A job that failed without attempts is retried on all of its platforms.
func (u *scheduleUsecase) failedPlatforms(ctx context.Context, job *model.ScheduledJob) ([]model.Platform, error) {
	attempts, err := u.attempts.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	succeeded := make(map[model.Platform]bool, len(attempts))
	for _, a := range attempts {
		if a.Success {
			succeeded[a.Platform] = true
		}
	}
	var out []model.Platform
	for _, p := range job.Platforms {
		if !succeeded[p] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: every platform of the job succeeded", model.ErrValidation)
	}
	return out, nil
}

func (u *scheduleUsecase) emit(job *model.ScheduledJob) {
	u.events.Publish(model.Event{Type: model.EventJobStatusChanged, UserID: job.UserID, JobID: job.ID, Status: string(job.Status), At: job.UpdatedAt})
}
