package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

type IScheduledJob interface {
	Create(ctx context.Context, job *model.ScheduledJob) error
	GetByID(ctx context.Context, id string) (*model.ScheduledJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.ScheduledJob, error)
	// FetchDue returns scheduled jobs whose time has come, oldest first.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledJob, error)
	// Claim moves a job from scheduled to processing. It reports false when another worker won.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	// Finish moves a processing job to completed or failed.
	Finish(ctx context.Context, id string, status model.JobStatus, errMsg *string, executedAt time.Time) error
	// Cancel moves a scheduled job owned by userID to cancelled. It reports false when the job was not scheduled.
	Cancel(ctx context.Context, id, userID string, now time.Time) (bool, error)
}

type IPublishAttempt interface {
	Insert(ctx context.Context, attempts []*model.PublishAttempt) error
	ListByJob(ctx context.Context, jobID string) ([]*model.PublishAttempt, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.PublishAttempt, error)
}

// IAttemptArchive keeps a document copy of attempts for long-term history.
type IAttemptArchive interface {
	Archive(ctx context.Context, attempts []*model.PublishAttempt) error
}
