package model_test

import (
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, model.CanTransition(model.JobScheduled, model.JobProcessing))
	assert.True(t, model.CanTransition(model.JobScheduled, model.JobCancelled))
	assert.True(t, model.CanTransition(model.JobProcessing, model.JobCompleted))
	assert.True(t, model.CanTransition(model.JobProcessing, model.JobFailed))

	assert.False(t, model.CanTransition(model.JobProcessing, model.JobCancelled))
	assert.False(t, model.CanTransition(model.JobScheduled, model.JobCompleted))
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	all := []model.JobStatus{model.JobScheduled, model.JobProcessing, model.JobCompleted, model.JobFailed, model.JobCancelled}
	for _, from := range []model.JobStatus{model.JobCompleted, model.JobFailed, model.JobCancelled} {
		assert.True(t, from.Terminal())
		for _, to := range all {
			assert.Falsef(t, model.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, model.JobScheduled.Terminal())
	assert.False(t, model.JobProcessing.Terminal())
}

func TestScheduledJobDue(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	job := &model.ScheduledJob{Status: model.JobScheduled, ScheduledFor: now}
	assert.True(t, job.Due(now))

	job.ScheduledFor = now.Add(time.Minute)
	assert.False(t, job.Due(now))

	job.ScheduledFor = now.Add(-time.Minute)
	job.Status = model.JobCancelled
	assert.False(t, job.Due(now))
}
