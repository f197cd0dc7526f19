package usecase

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/utils"
)

const (
	overviewJobs     = 10
	overviewAttempts = 20
)

// IStatusUsecase is a read-only projection over connections, jobs and attempts.
type IStatusUsecase interface {
	ListConnections(ctx context.Context, userID string) ([]dto.ConnectionStatus, error)
	GetJob(ctx context.Context, userID, jobID string) (*dto.JobView, error)
	Overview(ctx context.Context, userID string) (*dto.StatusOverview, error)
}

type statusUsecase struct {
	connections  repository.IConnection
	jobs         repository.IScheduledJob
	attempts     repository.IPublishAttempt
	extendWindow time.Duration
	now          func() time.Time
}

func NewStatusUsecase(connections repository.IConnection, jobs repository.IScheduledJob, attempts repository.IPublishAttempt, extendWindow time.Duration) IStatusUsecase {
	return &statusUsecase{
		connections:  connections,
		jobs:         jobs,
		attempts:     attempts,
		extendWindow: extendWindow,
		now:          utils.GetCurrentTime,
	}
}

func (u *statusUsecase) ListConnections(ctx context.Context, userID string) ([]dto.ConnectionStatus, error) {
	rows, err := u.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	byPlatform := make(map[model.Platform]*model.PlatformConnection, len(rows))
	for _, c := range rows {
		byPlatform[c.Platform] = c
	}
	now := u.now()
	out := make([]dto.ConnectionStatus, 0, len(model.AllPlatforms()))
	for _, p := range model.AllPlatforms() {
		st := dto.ConnectionStatus{Platform: p, State: dto.StateDisconnected}
		if c, ok := byPlatform[p]; ok {
			st.Connected = c.Connected
			st.AccountName = c.AccountName
			st.AccountHandle = c.AccountHandle
			st.ExpiresAt = c.ExpiresAt
			st.LastSyncAt = c.LastSyncAt
			st.State = u.stateOf(c, now)
		}
		out = append(out, st)
	}
	return out, nil
}

func (u *statusUsecase) stateOf(c *model.PlatformConnection, now time.Time) dto.ConnectionState {
	if !c.Connected {
		return dto.StateDisconnected
	}
	if c.AccessToken == "" {
		return dto.StateReconnectRequired
	}
	switch c.Platform.Renewal() {
	case model.RenewByRefresh:
		if c.Expired(now) && c.RefreshToken == "" {
			return dto.StateReconnectRequired
		}
	case model.RenewByExtension:
		if c.Expired(now) {
			return dto.StateReconnectRequired
		}
		if c.ExpiresWithin(now, u.extendWindow) {
			return dto.StateExpiring
		}
	}
	return dto.StateConnected
}

func (u *statusUsecase) GetJob(ctx context.Context, userID, jobID string) (*dto.JobView, error) {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", jobID, model.ErrNotFound)
	}
	attempts, err := u.attempts.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []*model.PublishAttempt{}
	}
	return &dto.JobView{Job: job, Attempts: attempts}, nil
}

func (u *statusUsecase) Overview(ctx context.Context, userID string) (*dto.StatusOverview, error) {
	conns, err := u.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	jobs, err := u.jobs.ListByUser(ctx, userID, overviewJobs)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	attempts, err := u.attempts.ListRecentByUser(ctx, userID, overviewAttempts)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if jobs == nil {
		jobs = []*model.ScheduledJob{}
	}
	if attempts == nil {
		attempts = []*model.PublishAttempt{}
	}
	return &dto.StatusOverview{Connections: conns, RecentJobs: jobs, RecentAttempts: attempts}, nil
}
